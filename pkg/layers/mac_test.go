package layers

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"Aethertalk/pkg/outbox"
)

type fakeSensor struct {
	readings []ChannelState // consumed in order, then ChannelFree
	calls    []time.Duration
	err      error
	onSense  func()
}

func (s *fakeSensor) Sense(d time.Duration) (ChannelState, error) {
	s.calls = append(s.calls, d)
	if s.onSense != nil {
		s.onSense()
	}
	if s.err != nil {
		return ChannelBusy, s.err
	}
	if len(s.readings) == 0 {
		return ChannelFree, nil
	}
	state := s.readings[0]
	s.readings = s.readings[1:]
	return state, nil
}

type fakeTransmitter struct {
	sent []string
	err  error
}

func (t *fakeTransmitter) Send(text string) error {
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, text)
	return nil
}

type memoryOutbox struct {
	names    []string
	texts    map[string]string
	nextErr  error
	readErr  error
	removeOK bool
}

func newMemoryOutbox(pairs ...string) *memoryOutbox {
	o := &memoryOutbox{texts: make(map[string]string), removeOK: true}
	for i := 0; i+1 < len(pairs); i += 2 {
		o.names = append(o.names, pairs[i])
		o.texts[pairs[i]] = pairs[i+1]
	}
	return o
}

func (o *memoryOutbox) Next() (*outbox.Entry, error) {
	if o.nextErr != nil {
		return nil, o.nextErr
	}
	if len(o.names) == 0 {
		return nil, nil
	}
	return &outbox.Entry{Name: o.names[0], Path: o.names[0]}, nil
}

func (o *memoryOutbox) Read(e *outbox.Entry) (string, error) {
	if o.readErr != nil {
		return "", o.readErr
	}
	return o.texts[e.Name], nil
}

func (o *memoryOutbox) Remove(e *outbox.Entry) error {
	if !o.removeOK {
		return errors.New("permission denied")
	}
	for i, name := range o.names {
		if name == e.Name {
			o.names = append(o.names[:i], o.names[i+1:]...)
			delete(o.texts, name)
			return nil
		}
	}
	return errors.New("no such entry")
}

func newTestMAC(ob *memoryOutbox, sensor *fakeSensor, tx *fakeTransmitter) *MACLayer {
	return &MACLayer{
		Physical:       tx,
		Sensor:         sensor,
		Outbox:         ob,
		TickInterval:   time.Millisecond,
		SenseDuration:  DefaultSenseDuration,
		ListenDuration: DefaultListenDuration,
	}
}

func TestDecide(t *testing.T) {
	entry := &outbox.Entry{Name: "msg1"}
	cases := []struct {
		pending *outbox.Entry
		reading ChannelState
		want    Action
	}{
		{entry, ChannelFree, Action{Kind: ActionTransmit, Entry: entry}},
		{entry, ChannelBusy, Action{Kind: ActionListen}},
		{nil, ChannelFree, Action{Kind: ActionListen}},
		{nil, ChannelBusy, Action{Kind: ActionListen}},
	}
	for _, c := range cases {
		if got := Decide(c.pending, c.reading); !reflect.DeepEqual(got, c.want) {
			t.Errorf("Decide(%v, %v) = %+v, expected %+v", c.pending, c.reading, got, c.want)
		}
	}
}

func TestTickBusyChannel(t *testing.T) {
	ob := newMemoryOutbox("msg1", "hello")
	sensor := &fakeSensor{readings: []ChannelState{ChannelBusy, ChannelBusy}}
	tx := &fakeTransmitter{}
	mac := newTestMAC(ob, sensor, tx)

	outcome, err := mac.Tick()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != ListenedThisTick {
		t.Errorf("outcome = %v", outcome)
	}
	if len(tx.sent) != 0 {
		t.Errorf("sent %v on a busy channel", tx.sent)
	}
	if !reflect.DeepEqual(ob.names, []string{"msg1"}) {
		t.Errorf("outbox = %v", ob.names)
	}
	want := []time.Duration{DefaultSenseDuration, DefaultListenDuration}
	if !reflect.DeepEqual(sensor.calls, want) {
		t.Errorf("sensor calls = %v, expected %v", sensor.calls, want)
	}
}

func TestTickFreeChannel(t *testing.T) {
	ob := newMemoryOutbox("msg1", "hello", "msg2", "world")
	sensor := &fakeSensor{}
	tx := &fakeTransmitter{}
	mac := newTestMAC(ob, sensor, tx)

	outcome, err := mac.Tick()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != TransmittedThisTick {
		t.Errorf("outcome = %v", outcome)
	}
	if !reflect.DeepEqual(tx.sent, []string{"hello"}) {
		t.Errorf("sent %v", tx.sent)
	}
	if !reflect.DeepEqual(ob.names, []string{"msg2"}) {
		t.Errorf("outbox = %v", ob.names)
	}
	// a transmitting tick does not listen
	if !reflect.DeepEqual(sensor.calls, []time.Duration{DefaultSenseDuration}) {
		t.Errorf("sensor calls = %v", sensor.calls)
	}
}

func TestTickEmptyOutbox(t *testing.T) {
	sensor := &fakeSensor{}
	tx := &fakeTransmitter{}
	mac := newTestMAC(newMemoryOutbox(), sensor, tx)

	outcome, err := mac.Tick()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != ListenedThisTick {
		t.Errorf("outcome = %v", outcome)
	}
	if !reflect.DeepEqual(sensor.calls, []time.Duration{DefaultListenDuration}) {
		t.Errorf("sensor calls = %v", sensor.calls)
	}
	if len(tx.sent) != 0 {
		t.Errorf("sent %v", tx.sent)
	}
}

func TestTickSendFailureKeepsEntry(t *testing.T) {
	ob := newMemoryOutbox("msg1", "hello")
	tx := &fakeTransmitter{err: errors.New("device gone")}
	mac := newTestMAC(ob, &fakeSensor{}, tx)

	if _, err := mac.Tick(); !errors.Is(err, tx.err) {
		t.Fatalf("expected playback error, got %v", err)
	}
	if !reflect.DeepEqual(ob.names, []string{"msg1"}) {
		t.Errorf("outbox = %v", ob.names)
	}
}

func TestTickRemoveFailure(t *testing.T) {
	ob := newMemoryOutbox("msg1", "hello")
	ob.removeOK = false
	tx := &fakeTransmitter{}
	mac := newTestMAC(ob, &fakeSensor{}, tx)

	for i := 0; i < 2; i++ {
		outcome, err := mac.Tick()
		if err != nil {
			t.Fatal(err)
		}
		if outcome != TransmittedThisTick {
			t.Errorf("tick %d outcome = %v", i, outcome)
		}
	}
	// the entry is still there, so it goes out again
	if !reflect.DeepEqual(tx.sent, []string{"hello", "hello"}) {
		t.Errorf("sent %v", tx.sent)
	}
}

func TestTickReadFailure(t *testing.T) {
	ob := newMemoryOutbox("msg1", "hello")
	ob.readErr = errors.New("no such file")
	sensor := &fakeSensor{}
	tx := &fakeTransmitter{}
	mac := newTestMAC(ob, sensor, tx)

	outcome, err := mac.Tick()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != ListenedThisTick {
		t.Errorf("outcome = %v", outcome)
	}
	if len(tx.sent) != 0 {
		t.Errorf("sent %v", tx.sent)
	}
	want := []time.Duration{DefaultSenseDuration, DefaultListenDuration}
	if !reflect.DeepEqual(sensor.calls, want) {
		t.Errorf("sensor calls = %v", sensor.calls)
	}
}

func TestTickErrors(t *testing.T) {
	ob := newMemoryOutbox("msg1", "hello")
	ob.nextErr = errors.New("permission denied")
	sensor := &fakeSensor{}
	outcome, err := newTestMAC(ob, sensor, &fakeTransmitter{}).Tick()
	if !errors.Is(err, ob.nextErr) || outcome != TickAborted {
		t.Errorf("listing failure: %v, %v", outcome, err)
	}
	if len(sensor.calls) != 0 {
		t.Errorf("sensed after a listing failure")
	}

	sensor = &fakeSensor{err: errors.New("device gone")}
	outcome, err = newTestMAC(newMemoryOutbox("msg1", "hello"), sensor, &fakeTransmitter{}).Tick()
	if !errors.Is(err, sensor.err) || outcome != TickAborted {
		t.Errorf("capture failure: %v, %v", outcome, err)
	}
}

// A channel that never clears starves the sender.
func TestTickStarvation(t *testing.T) {
	ob := newMemoryOutbox("msg1", "hello")
	readings := make([]ChannelState, 20)
	for i := range readings {
		readings[i] = ChannelBusy
	}
	tx := &fakeTransmitter{}
	mac := newTestMAC(ob, &fakeSensor{readings: readings}, tx)

	for i := 0; i < 10; i++ {
		if outcome, err := mac.Tick(); err != nil || outcome != ListenedThisTick {
			t.Fatalf("tick %d: %v, %v", i, outcome, err)
		}
	}
	if len(tx.sent) != 0 {
		t.Errorf("sent %v", tx.sent)
	}
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ob := newMemoryOutbox("msg1", "hello", "msg2", "world")
	sensor := &fakeSensor{}
	tx := &fakeTransmitter{}
	mac := newTestMAC(ob, sensor, tx)
	sensor.onSense = func() {
		if len(sensor.calls) == 4 {
			cancel()
		}
	}

	// sense, send; sense, send; listen; listen (cancelled)
	if err := mac.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !reflect.DeepEqual(tx.sent, []string{"hello", "world"}) {
		t.Errorf("sent %v", tx.sent)
	}
	if len(ob.names) != 0 {
		t.Errorf("outbox = %v", ob.names)
	}
}

func TestRunStopsOnTickError(t *testing.T) {
	ob := newMemoryOutbox()
	ob.nextErr = errors.New("permission denied")
	mac := newTestMAC(ob, &fakeSensor{}, &fakeTransmitter{})

	if err := mac.Run(context.Background()); !errors.Is(err, ob.nextErr) {
		t.Errorf("expected listing error, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sensor := &fakeSensor{}
	mac := newTestMAC(newMemoryOutbox(), sensor, &fakeTransmitter{})

	if err := mac.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(sensor.calls) != 0 {
		t.Errorf("ticked after cancellation")
	}
}

func TestRunSkipsUnframeableEntry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	box := outbox.Dir{Path: t.TempDir()}
	if _, err := box.Put("a_utf8", "café\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := box.Put("b_ok", "HI"); err != nil {
		t.Fatal(err)
	}

	phy, audio := newMemoryPhysical(fastTone())
	sensor := &fakeSensor{}
	sensor.onSense = func() {
		if len(sensor.calls) == 4 {
			cancel()
		}
	}
	mac := &MACLayer{
		Physical:       phy,
		Sensor:         sensor,
		Outbox:         box,
		TickInterval:   time.Millisecond,
		SenseDuration:  DefaultSenseDuration,
		ListenDuration: DefaultListenDuration,
	}

	// sense, drop a_utf8, listen; sense, send b_ok; listen (cancelled)
	if err := mac.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	want := []time.Duration{DefaultSenseDuration, DefaultListenDuration, DefaultSenseDuration, DefaultListenDuration}
	if !reflect.DeepEqual(sensor.calls, want) {
		t.Errorf("sensor calls = %v, expected %v", sensor.calls, want)
	}
	if entry, err := box.Next(); err != nil || entry != nil {
		t.Errorf("outbox still holds %v (%v)", entry, err)
	}
	if audio.plays != 1 {
		t.Fatalf("played %d frames, expected 1", audio.plays)
	}
	if text, _, err := phy.Receive(time.Second); err != nil || text != "HI" {
		t.Errorf("on air: %q (%v)", text, err)
	}
}

func TestTickPlaybackFailureIsNotDropped(t *testing.T) {
	ob := newMemoryOutbox("msg1", "hello")
	phy, audio := newMemoryPhysical(fastTone())
	audio.playErr = errors.New("device gone")
	mac := &MACLayer{Physical: phy, Sensor: &fakeSensor{}, Outbox: ob}

	if _, err := mac.Tick(); !errors.Is(err, audio.playErr) {
		t.Fatalf("expected playback error, got %v", err)
	}
	if !reflect.DeepEqual(ob.names, []string{"msg1"}) {
		t.Errorf("outbox = %v", ob.names)
	}
}
