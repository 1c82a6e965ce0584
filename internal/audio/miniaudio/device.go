package miniaudio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/oshokin/wakeup-call/internal/audio"
)

// errNotConfigured is returned when the device is driven before Configure.
var errNotConfigured = errors.New("playback device not configured")

// Device is the malgo-backed audio.Output. One Device wraps one malgo
// context for the life of the process; Configure and Unload cycle the
// playback device inside it as sessions come and go.
//
// Exclusive and DuckOthers are host-route hints with no direct miniaudio
// equivalent; this backend honors Volume and treats the rest as advisory.
type Device struct {
	// mu serializes configure/start/stop/unload transitions.
	mu sync.Mutex
	// audioCtx is the process-wide malgo context.
	audioCtx *malgo.AllocatedContext
	// device is the live playback device, nil when unloaded.
	device *malgo.Device
	// profile is the route the device was configured with.
	profile audio.RouteProfile

	// feedMu protects the playback cursor state below.
	feedMu sync.Mutex
	// buffer is the PCM being played.
	buffer []byte
	// cursor is the next byte of buffer to feed.
	cursor int
	// loop repeats buffer until Stop.
	loop bool
	// draining marks a buffer that ran out without loop.
	draining bool
}

// NewDevice initializes the malgo context for the process.
func NewDevice() (*Device, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	return &Device{audioCtx: audioCtx}, nil
}

// Configure initializes the playback device for the profile.
func (d *Device) Configure(profile audio.RouteProfile) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A leftover device means the previous session skipped Unload.
	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}

	const channels = 1

	format := malgo.FormatS16
	sampleRate := uint32(profile.SampleRate)
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = sampleRate
	config.Playback.Format = format
	config.Playback.Channels = channels
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	config.Periods = 4

	device, err := malgo.InitDevice(
		d.audioCtx.Context,
		config,
		malgo.DeviceCallbacks{Data: d.feed(bytesPerFrame)},
	)
	if err != nil {
		return fmt.Errorf("init playback device: %w", err)
	}

	d.device = device
	d.profile = profile

	return nil
}

// Play starts feeding the PCM buffer to the device. An empty buffer is
// the silent tone: nothing starts and nothing fails.
func (d *Device) Play(pcm []byte, loop bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(pcm) == 0 {
		return nil
	}

	if d.device == nil {
		return errNotConfigured
	}

	d.feedMu.Lock()
	d.buffer = pcm
	d.cursor = 0
	d.loop = loop
	d.draining = false
	d.feedMu.Unlock()

	if !d.device.IsStarted() {
		if err := d.device.Start(); err != nil {
			return fmt.Errorf("start playback device: %w", err)
		}
	}

	return nil
}

// Stop halts playback and discards whatever was queued.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.clearBuffer()

	if d.device == nil || !d.device.IsStarted() {
		return nil
	}

	if err := d.device.Stop(); err != nil {
		return fmt.Errorf("stop playback device: %w", err)
	}

	return nil
}

// Unload releases the playback device so the next session can configure
// its own route.
func (d *Device) Unload() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.clearBuffer()

	if d.device == nil {
		return nil
	}

	d.device.Uninit()
	d.device = nil

	return nil
}

// Enable force re-enables the output. miniaudio has no host-level output
// switch, so a configured but idle device is started and everything else
// is already as enabled as it gets.
func (d *Device) Enable() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil || d.device.IsStarted() {
		return nil
	}

	if err := d.device.Start(); err != nil {
		return fmt.Errorf("start playback device: %w", err)
	}

	return nil
}

// Close releases the device and the malgo context.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}

	if d.audioCtx != nil {
		if err := d.audioCtx.Uninit(); err != nil {
			return fmt.Errorf("uninit audio context: %w", err)
		}

		d.audioCtx.Free()
		d.audioCtx = nil
	}

	return nil
}

// clearBuffer drops the playback cursor state. Callers hold d.mu.
func (d *Device) clearBuffer() {
	d.feedMu.Lock()
	defer d.feedMu.Unlock()

	d.buffer = nil
	d.cursor = 0
	d.loop = false
	d.draining = false
}

// feed returns the data callback that copies PCM into the device buffers,
// wrapping at the end when looping and going quiet when drained.
func (d *Device) feed(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		d.feedMu.Lock()
		defer d.feedMu.Unlock()

		if len(d.buffer) == 0 || d.draining {
			return
		}

		need := int(frameCount) * bytesPerFrame
		out := 0

		for out < need {
			if d.cursor >= len(d.buffer) {
				if !d.loop {
					d.draining = true

					break
				}

				d.cursor = 0
			}

			n := copy(pOutput[out:need], d.buffer[d.cursor:])
			d.cursor += n
			out += n
		}

		d.applyVolume(pOutput[:out])
	}
}

// applyVolume scales 16-bit samples by the profile volume.
func (d *Device) applyVolume(chunk []byte) {
	volume := d.profile.Volume
	if volume >= 1 || len(chunk) < 2 {
		return
	}

	for i := 0; i+1 < len(chunk); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(chunk[i : i+2]))
		scaled := int16(float64(sample) * volume)
		binary.LittleEndian.PutUint16(chunk[i:i+2], uint16(scaled))
	}
}
