package layers

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"Aethertalk/pkg/frame"
	"Aethertalk/pkg/outbox"
)

type Outbox interface {
	Next() (*outbox.Entry, error)
	Read(e *outbox.Entry) (string, error)
	Remove(e *outbox.Entry) error
}

type Transmitter interface {
	Send(text string) error
}

type Sensor interface {
	Sense(d time.Duration) (ChannelState, error)
}

type ActionKind int

const (
	ActionListen ActionKind = iota
	ActionTransmit
)

func (k ActionKind) String() string {
	if k == ActionTransmit {
		return "transmit"
	}
	return "listen"
}

type Action struct {
	Kind  ActionKind
	Entry *outbox.Entry // set for ActionTransmit
}

// Decide is the whole contention policy: a pending message goes out only
// when the channel was just sensed free, otherwise the node listens.
// There is no backoff and no jitter, so a channel that never clears starves
// the sender.
func Decide(pending *outbox.Entry, reading ChannelState) Action {
	if pending != nil && reading == ChannelFree {
		return Action{Kind: ActionTransmit, Entry: pending}
	}
	return Action{Kind: ActionListen}
}

type TickOutcome int

const (
	TickAborted TickOutcome = iota
	TransmittedThisTick
	ListenedThisTick
)

func (o TickOutcome) String() string {
	switch o {
	case TransmittedThisTick:
		return "transmitted"
	case ListenedThisTick:
		return "listened"
	default:
		return "aborted"
	}
}

const (
	DefaultTickInterval   = 500 * time.Millisecond
	DefaultSenseDuration  = 1 * time.Second
	DefaultListenDuration = 5 * time.Second
)

// MACLayer schedules access to the shared channel one tick at a time:
// sense then transmit when the outbox has work and the channel is free,
// listen otherwise. Every step blocks the caller for its fixed duration and
// only one of them runs at a time.
type MACLayer struct {
	Physical Transmitter
	Sensor   Sensor
	Outbox   Outbox

	TickInterval   time.Duration
	SenseDuration  time.Duration
	ListenDuration time.Duration

	Logger *zerolog.Logger
}

func (m *MACLayer) logger() *zerolog.Logger {
	if m.Logger == nil {
		return &log.Logger
	}
	return m.Logger
}

func (m *MACLayer) Tick() (TickOutcome, error) {
	entry, err := m.Outbox.Next()
	if err != nil {
		return TickAborted, err
	}

	reading := ChannelBusy
	if entry != nil {
		m.logger().Info().Str("entry", entry.Name).Msg("[MAC] checking channel")
		reading, err = m.Sensor.Sense(m.SenseDuration)
		if err != nil {
			return TickAborted, err
		}
		m.logger().Info().Stringer("state", reading).Msg("[MAC] channel sensed")
	}

	action := Decide(entry, reading)
	if action.Kind == ActionTransmit {
		sent, err := m.transmit(action.Entry)
		if err != nil {
			return TickAborted, err
		}
		if sent {
			return TransmittedThisTick, nil
		}
	}

	if err := m.listen(); err != nil {
		return TickAborted, err
	}
	return ListenedThisTick, nil
}

// transmit reports false when the entry disappeared before it could be read
// or cannot be framed. An unframeable entry is dropped so it does not block
// the ones listed after it.
func (m *MACLayer) transmit(entry *outbox.Entry) (bool, error) {
	text, err := m.Outbox.Read(entry)
	if err != nil {
		m.logger().Warn().Err(err).Str("entry", entry.Name).Msg("[MAC] entry vanished")
		return false, nil
	}

	m.logger().Info().Str("entry", entry.Name).Msg("[MAC] transmitting")
	if err := m.Physical.Send(text); err != nil {
		if !errors.Is(err, frame.ErrNonASCII) {
			return false, err
		}
		m.logger().Warn().Err(err).Str("entry", entry.Name).Msg("[MAC] entry cannot be framed, dropping it")
		if err := m.Outbox.Remove(entry); err != nil {
			m.logger().Warn().Err(err).Str("entry", entry.Name).Msg("[MAC] failed to drop entry")
		}
		return false, nil
	}

	// the message is already on air: a failed delete means it will be sent again
	if err := m.Outbox.Remove(entry); err != nil {
		m.logger().Warn().Err(err).Str("entry", entry.Name).Msg("[MAC] entry kept after transmission, it may be sent twice")
	}
	return true, nil
}

// listen occupies the slot so the channel can clear. What is heard is only
// used to log activity.
func (m *MACLayer) listen() error {
	m.logger().Debug().Dur("duration", m.ListenDuration).Msg("[MAC] listening")
	_, err := m.Sensor.Sense(m.ListenDuration)
	return err
}

// Run ticks until ctx is done or a tick fails.
func (m *MACLayer) Run(ctx context.Context) error {
	m.logger().Info().Dur("tick", m.TickInterval).Msg("[MAC] scheduler started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, err := m.Tick()
		if err != nil {
			return err
		}
		m.logger().Debug().Stringer("outcome", outcome).Msg("[MAC] tick done")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.TickInterval):
		}
	}
}
