package audio

import (
	"encoding/binary"
	"math"

	"github.com/oshokin/wakeup-call/internal/domain/wake"
)

// Tone amplitude relative to full scale. Max volume is enforced by the
// route profile, not by clipping the waveform.
const toneAmplitude = 0.8

// Tone renders one loopable cycle of the sound as 16-bit little-endian
// mono PCM at the given sample rate. SoundSilent renders no samples:
// the ringer still rings, there is just nothing to play.
func Tone(sound wake.SoundID, sampleRate int) []byte {
	switch sound {
	case wake.SoundClassic:
		return renderClassic(sampleRate)
	case wake.SoundChime:
		return renderChime(sampleRate)
	case wake.SoundPulse:
		return renderPulse(sampleRate)
	case wake.SoundSilent:
		return nil
	default:
		return renderClassic(sampleRate)
	}
}

// ToneDuration returns the wall-clock length of the PCM buffer.
func ToneDuration(pcm []byte, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}

	return float64(len(pcm)/2) / float64(sampleRate)
}

// renderClassic produces four short 880 Hz square beeps with gaps and a
// trailing pause, the familiar nightstand pattern.
func renderClassic(sampleRate int) []byte {
	var (
		beep = squareWave(sampleRate, 880, 0.15)
		gap  = silence(sampleRate, 0.10)
		tail = silence(sampleRate, 0.40)
	)

	cycle := make([]byte, 0, 4*len(beep)+3*len(gap)+len(tail))
	for i := 0; i < 4; i++ {
		cycle = append(cycle, beep...)
		if i < 3 {
			cycle = append(cycle, gap...)
		}
	}

	return append(cycle, tail...)
}

// renderChime produces two decaying 660 Hz strikes per cycle.
func renderChime(sampleRate int) []byte {
	strike := decayedSine(sampleRate, 660, 1.0)

	cycle := make([]byte, 0, 2*len(strike))
	cycle = append(cycle, strike...)
	cycle = append(cycle, strike...)

	return cycle
}

// renderPulse produces five tight 440 Hz bursts per second.
func renderPulse(sampleRate int) []byte {
	var (
		burst = sineWave(sampleRate, 440, 0.06)
		rest  = silence(sampleRate, 0.14)
	)

	cycle := make([]byte, 0, 5*(len(burst)+len(rest)))
	for i := 0; i < 5; i++ {
		cycle = append(cycle, burst...)
		cycle = append(cycle, rest...)
	}

	return cycle
}

// sineWave renders seconds of a plain sine tone.
func sineWave(sampleRate int, freq float64, seconds float64) []byte {
	n := int(float64(sampleRate) * seconds)
	buf := make([]byte, 0, n*2)

	for i := 0; i < n; i++ {
		sample := toneAmplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		buf = appendSample(buf, sample)
	}

	return buf
}

// squareWave renders seconds of a square tone.
func squareWave(sampleRate int, freq float64, seconds float64) []byte {
	n := int(float64(sampleRate) * seconds)
	buf := make([]byte, 0, n*2)

	for i := 0; i < n; i++ {
		sample := toneAmplitude
		if math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)) < 0 {
			sample = -toneAmplitude
		}

		buf = appendSample(buf, sample)
	}

	return buf
}

// decayedSine renders seconds of a sine tone with exponential decay.
func decayedSine(sampleRate int, freq float64, seconds float64) []byte {
	n := int(float64(sampleRate) * seconds)
	buf := make([]byte, 0, n*2)

	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		sample := toneAmplitude * math.Exp(-3*t) * math.Sin(2*math.Pi*freq*t)
		buf = appendSample(buf, sample)
	}

	return buf
}

// silence renders seconds of nothing.
func silence(sampleRate int, seconds float64) []byte {
	n := int(float64(sampleRate) * seconds)

	return make([]byte, n*2)
}

// appendSample converts a [-1, 1] sample to little-endian int16.
func appendSample(buf []byte, sample float64) []byte {
	if sample > 1 {
		sample = 1
	} else if sample < -1 {
		sample = -1
	}

	return binary.LittleEndian.AppendUint16(buf, uint16(int16(sample*math.MaxInt16)))
}
