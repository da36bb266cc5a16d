package modem

import (
	"math"
	"math/cmplx"
	"time"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// ToneConfig holds the binary FSK parameters of the link.
type ToneConfig struct {
	SampleRate    float64
	BitDuration   time.Duration
	MarkFreq      float64 // tone for bit 1
	SpaceFreq     float64 // tone for bit 0
	Amplitude     float64
	Threshold     float64 // minimum band magnitude for a bit to count
	BandHalfWidth float64 // Hz on each side of a tone
}

func DefaultToneConfig() ToneConfig {
	return ToneConfig{
		SampleRate:    44100,
		BitDuration:   100 * time.Millisecond,
		MarkFreq:      1500,
		SpaceFreq:     1000,
		Amplitude:     0.5,
		Threshold:     0.3,
		BandHalfWidth: 50,
	}
}

// SamplesIn returns the number of samples covering d at the given rate.
func SamplesIn(d time.Duration, sampleRate float64) int {
	return int(math.Round(d.Seconds() * sampleRate))
}

// ToneCodec is immutable once built and safe for concurrent use.
type ToneCodec struct {
	cfg      ToneConfig
	carriers [2][]float64
}

func (c ToneConfig) New() *ToneCodec {
	size := SamplesIn(c.BitDuration, c.SampleRate)
	return &ToneCodec{
		cfg: c,
		carriers: [2][]float64{
			sine(c.Amplitude, c.SpaceFreq, c.SampleRate, size),
			sine(c.Amplitude, c.MarkFreq, c.SampleRate, size),
		},
	}
}

func sine(amplitude, freq, sampleRate float64, size int) []float64 {
	signal := make([]float64, size)
	for i := range signal {
		t := float64(i) / sampleRate
		signal[i] = amplitude * math.Sin(2*math.Pi*freq*t)
	}
	return signal
}

func (c *ToneCodec) Config() ToneConfig {
	return c.cfg
}

func (c *ToneCodec) SamplesPerBit() int {
	return len(c.carriers[0])
}

// EncodeBit returns a fresh copy of the tone for bit.
func (c *ToneCodec) EncodeBit(bit bool) []float64 {
	carrier := c.carriers[0]
	if bit {
		carrier = c.carriers[1]
	}
	out := make([]float64, len(carrier))
	copy(out, carrier)
	return out
}

func (c *ToneCodec) DecodeBit(chunk []float64) (bool, bool) {
	mark, space := c.BandEnergy(chunk)
	switch {
	case mark > space && mark > c.cfg.Threshold:
		return true, true
	case space > c.cfg.Threshold:
		return false, true
	default:
		return false, false
	}
}

// BandEnergy returns the mean spectral magnitude around the mark and the
// space frequency.
func (c *ToneCodec) BandEnergy(chunk []float64) (mark, space float64) {
	n := len(chunk)
	if n == 0 {
		return 0, 0
	}
	spectrum := fft.FFTReal(chunk)
	half := n / 2
	magnitude := make([]float64, half)
	for k := range magnitude {
		magnitude[k] = cmplx.Abs(spectrum[k])
	}
	resolution := c.cfg.SampleRate / float64(n)
	band := func(freq float64) float64 {
		values := make([]float64, 0, 16)
		for k, m := range magnitude {
			f := float64(k) * resolution
			if f > freq-c.cfg.BandHalfWidth && f < freq+c.cfg.BandHalfWidth {
				values = append(values, m)
			}
		}
		if len(values) == 0 {
			return 0
		}
		return stat.Mean(values, nil)
	}
	return band(c.cfg.MarkFreq), band(c.cfg.SpaceFreq)
}
