package device

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/drgolem/go-portaudio/portaudio"
)

// PortAudio opens a duplex mono int32 stream. portaudio.Initialize must have
// been called by the program beforehand.
type PortAudio struct {
	InputDevice     int
	OutputDevice    int
	SampleRate      float64
	FramesPerBuffer int

	stream *portaudio.PaStream
	in     []int32
	out    []int32
}

func (p *PortAudio) Start(callback func(in, out []int32)) error {
	if p.stream != nil {
		return errors.New("portaudio stream already started")
	}
	frames := p.FramesPerBuffer
	if frames <= 0 {
		frames = BufferSize
	}

	stream := &portaudio.PaStream{
		InputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  p.InputDevice,
			ChannelCount: 1,
			SampleFormat: portaudio.SampleFmtInt32,
		},
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  p.OutputDevice,
			ChannelCount: 1,
			SampleFormat: portaudio.SampleFmtInt32,
		},
		SampleRate: p.SampleRate,
	}

	err := stream.OpenCallback(frames, func(
		input, output []byte,
		frameCount uint,
		timeInfo *portaudio.StreamCallbackTimeInfo,
		statusFlags portaudio.StreamCallbackFlags,
	) portaudio.StreamCallbackResult {
		n := int(frameCount)
		if cap(p.in) < n {
			p.in = make([]int32, n)
			p.out = make([]int32, n)
		}
		in, out := p.in[:n], p.out[:n]
		for i := range in {
			if 4*i+4 <= len(input) {
				in[i] = int32(binary.LittleEndian.Uint32(input[4*i:]))
			} else {
				in[i] = 0
			}
		}
		callback(in, out)
		for i, v := range out {
			if 4*i+4 > len(output) {
				break
			}
			binary.LittleEndian.PutUint32(output[4*i:], uint32(v))
		}
		return portaudio.Continue
	})
	if err != nil {
		return fmt.Errorf("failed to open stream with callback: %w", err)
	}
	if err := stream.StartStream(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	p.stream = stream
	return nil
}

func (p *PortAudio) Stop() error {
	if p.stream == nil {
		return errors.New("portaudio stream not started")
	}
	defer func() { p.stream = nil }()
	if err := p.stream.StopStream(); err != nil {
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	if err := p.stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}
