package audio

// Owner identifies the single client allowed to drive the audio output.
type Owner string

// Audio session owners. OwnerNone means the output is free. The pre-warm
// probe is a second-class owner: it only primes the route and every real
// owner may displace it at any time.
const (
	OwnerNone         Owner = "none"
	OwnerRinger       Owner = "ringer"
	OwnerSpeech       Owner = "speech"
	OwnerPodcast      Owner = "podcast"
	OwnerPrewarmProbe Owner = "prewarm-probe"
)

// Valid reports whether the owner is one of the known session holders.
func (o Owner) Valid() bool {
	switch o {
	case OwnerNone, OwnerRinger, OwnerSpeech, OwnerPodcast, OwnerPrewarmProbe:
		return true
	default:
		return false
	}
}

// RouteProfile describes how the output must be configured for an owner.
type RouteProfile struct {
	// Exclusive takes the device for this client alone.
	Exclusive bool
	// DuckOthers lowers other audio instead of silencing it.
	DuckOthers bool
	// IgnoreMute plays at the requested volume even when the output
	// is muted. The ringer must be heard regardless of switches.
	IgnoreMute bool
	// Background primes the route without audible playback.
	Background bool
	// Volume is the playback gain, 0 through 1.
	Volume float64
	// SampleRate is the output sample rate in Hz.
	SampleRate int
}

// profileFor returns the route profile an owner runs with.
func profileFor(owner Owner, sampleRate int) RouteProfile {
	switch owner {
	case OwnerRinger:
		return RouteProfile{Exclusive: true, IgnoreMute: true, Volume: 1, SampleRate: sampleRate}
	case OwnerSpeech:
		return RouteProfile{DuckOthers: true, Volume: 1, SampleRate: sampleRate}
	case OwnerPodcast:
		return RouteProfile{Volume: 1, SampleRate: sampleRate}
	case OwnerPrewarmProbe:
		return RouteProfile{Background: true, Volume: 0, SampleRate: sampleRate}
	default:
		return RouteProfile{SampleRate: sampleRate}
	}
}
