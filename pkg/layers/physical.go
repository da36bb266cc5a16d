package layers

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"Aethertalk/pkg/device"
	"Aethertalk/pkg/frame"
	"Aethertalk/pkg/modem"
)

// PhysicalLayer moves text frames through an audio device.
type PhysicalLayer struct {
	Audio      device.Audio
	Codec      modem.BitCodec
	Framer     frame.Codec
	SampleRate float64
	Logger     *zerolog.Logger
}

func (p *PhysicalLayer) logger() *zerolog.Logger {
	if p.Logger == nil {
		return &log.Logger
	}
	return p.Logger
}

// Send frames, modulates and plays text. It blocks for the whole
// transmission.
func (p *PhysicalLayer) Send(text string) error {
	bits, err := p.Framer.Build(text)
	if err != nil {
		return err
	}
	p.logger().Info().Int("chars", len(text)).Int("bits", len(bits)).Msg("[PHY] transmitting")
	if err := p.Audio.Play(modem.Modulate(p.Codec, bits)); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	p.logger().Info().Msg("[PHY] transmission complete")
	return nil
}

// Listen records for d and returns every bit that could be decided.
func (p *PhysicalLayer) Listen(d time.Duration) (modem.Bitstream, error) {
	p.logger().Debug().Dur("duration", d).Msg("[PHY] listening")
	signal, err := p.Audio.Record(modem.SamplesIn(d, p.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}
	return modem.Demodulate(p.Codec, signal), nil
}

// Receive listens for d and decodes the first frame heard. The raw bits are
// returned even when decoding fails.
func (p *PhysicalLayer) Receive(d time.Duration) (string, modem.Bitstream, error) {
	bits, err := p.Listen(d)
	if err != nil {
		return "", nil, err
	}
	p.logger().Info().Int("bits", len(bits)).Msg("[PHY] bits received")
	text, err := p.Framer.Parse(bits)
	return text, bits, err
}
