package device

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/youpy/go-wav"
	soxr "github.com/zaf/resample"
)

// WAVFile is an Audio backed by files instead of a sound card. Play writes
// a 16-bit mono WAV to OutputPath (overwriting it); Record serves the samples
// of InputPath one after another and returns silence once it is exhausted.
type WAVFile struct {
	InputPath  string
	OutputPath string
	SampleRate float64

	mu     sync.Mutex
	loaded bool
	input  []float64
	pos    int
}

func (w *WAVFile) Play(samples []float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.OutputPath == "" {
		return errors.New("wav: no output path")
	}
	f, err := os.OpenFile(w.OutputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	out := make([]wav.Sample, len(samples))
	for i, v := range samples {
		out[i].Values[0] = int(toInt16(v))
	}
	writer := wav.NewWriter(f, uint32(len(out)), 1, uint32(w.SampleRate), 16)
	if err := writer.WriteSamples(out); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	return nil
}

func (w *WAVFile) Record(n int) ([]float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded {
		if w.InputPath != "" {
			input, err := readWAV(w.InputPath, w.SampleRate)
			if err != nil {
				return nil, err
			}
			w.input = input
		}
		w.loaded = true
	}

	out := make([]float64, n)
	w.pos += copy(out, w.input[min(w.pos, len(w.input)):])
	return out, nil
}

// readWAV loads the first channel of a PCM WAV file as samples in [-1, 1],
// resampled to sampleRate when the file uses another rate.
func readWAV(path string, sampleRate float64) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer file.Close()

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV format: %w", err)
	}
	if format.AudioFormat != wav.AudioFormatPCM {
		return nil, fmt.Errorf("unsupported WAV format: %d (only PCM supported)", format.AudioFormat)
	}

	var samples []float64
	for {
		chunk, err := reader.ReadSamples(4096)
		for _, s := range chunk {
			samples = append(samples, pcmToFloat(s.Values[0], format.BitsPerSample))
		}
		if err == io.EOF || (err == nil && len(chunk) == 0) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read WAV samples: %w", err)
		}
	}

	if rate := float64(format.SampleRate); rate != sampleRate {
		return resample(samples, rate, sampleRate)
	}
	return samples, nil
}

func pcmToFloat(v int, bitsPerSample uint16) float64 {
	if bitsPerSample == 8 {
		return float64(v-128) / 128
	}
	return float64(v) / float64(int64(1)<<(bitsPerSample-1))
}

func toInt16(v float64) int16 {
	switch {
	case v >= 1:
		return 0x7fff
	case v <= -1:
		return -0x7fff
	}
	return int16(v * 0x7fff)
}

// resample converts mono samples between rates through 16-bit SoXR.
func resample(samples []float64, fromRate, toRate float64) ([]float64, error) {
	pcm := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(toInt16(v)))
	}

	var bufResampled bytes.Buffer
	bufWriter := bufio.NewWriter(&bufResampled)

	resampler, err := soxr.New(bufWriter, fromRate, toRate, 1, soxr.I16, soxr.HighQ)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	if _, err := resampler.Write(pcm); err != nil {
		resampler.Close()
		return nil, fmt.Errorf("failed to resample: %w", err)
	}
	if err := resampler.Close(); err != nil {
		return nil, fmt.Errorf("failed to close resampler: %w", err)
	}
	if err := bufWriter.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush buffer: %w", err)
	}

	out := bufResampled.Bytes()
	resampled := make([]float64, len(out)/2)
	for i := range resampled {
		resampled[i] = float64(int16(binary.LittleEndian.Uint16(out[2*i:]))) / 0x8000
	}
	return resampled, nil
}
