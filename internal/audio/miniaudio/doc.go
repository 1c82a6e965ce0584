// Package miniaudio implements the audio.Output seam on top of malgo
// (miniaudio bindings), feeding raw PCM through a pull-style device
// callback. The daemon uses it as the real playback backend; tests use
// a scripted fake instead of opening devices.
package miniaudio
