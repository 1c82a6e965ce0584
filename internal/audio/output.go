package audio

// Output is the playback device seam between the session manager and the
// host audio stack. The miniaudio subpackage provides the real device;
// tests substitute a scripted fake.
type Output interface {
	// Configure prepares the device route for the profile. It is only
	// called on a fresh or unloaded device.
	Configure(profile RouteProfile) error
	// Play starts playback of 16-bit little-endian mono PCM. With loop
	// set the buffer repeats until Stop.
	Play(pcm []byte, loop bool) error
	// Stop halts playback and discards any buffered audio.
	Stop() error
	// Unload releases the device so a different route can be configured.
	Unload() error
	// Enable force re-enables the output after the host idled it.
	Enable() error
}

// NopOutput stands in when the host has no usable playback device. The
// session lifecycle keeps working, playback goes nowhere.
type NopOutput struct{}

// Configure implements Output.
func (NopOutput) Configure(RouteProfile) error { return nil }

// Play implements Output.
func (NopOutput) Play([]byte, bool) error { return nil }

// Stop implements Output.
func (NopOutput) Stop() error { return nil }

// Unload implements Output.
func (NopOutput) Unload() error { return nil }

// Enable implements Output.
func (NopOutput) Enable() error { return nil }
