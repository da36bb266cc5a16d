package layers

import "time"

type ChannelState int

const (
	ChannelFree ChannelState = iota
	ChannelBusy
)

func (s ChannelState) String() string {
	switch s {
	case ChannelFree:
		return "free"
	case ChannelBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// DefaultNoiseFloor is the number of decoded bits a quiet channel may
// produce by chance.
const DefaultNoiseFloor = 20

// ChannelSensor is a coarse carrier sense: it counts the bits that can be
// decided in a short recording and does not look for a frame.
type ChannelSensor struct {
	Physical   *PhysicalLayer
	NoiseFloor int
}

func (c ChannelSensor) Classify(bitCount int) ChannelState {
	if bitCount > c.NoiseFloor {
		return ChannelBusy
	}
	return ChannelFree
}

func (c ChannelSensor) Sense(d time.Duration) (ChannelState, error) {
	bits, err := c.Physical.Listen(d)
	if err != nil {
		return ChannelBusy, err
	}
	state := c.Classify(len(bits))
	if state == ChannelBusy {
		c.Physical.logger().Info().Int("bits", len(bits)).Msg("[CS] received signal")
	}
	return state, nil
}
