package device

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/drgolem/ringbuffer"
)

var ErrNotOpen = errors.New("stream is not open")

const (
	playRingSize   = 1 << 16 // bytes
	recordRingSize = 1 << 18 // bytes
	playChunk      = BufferSize * 4
)

// Stream turns a callback Device into a blocking Audio. Only one Play or
// Record runs at a time, which keeps the link half-duplex even when several
// goroutines share the stream.
//
// Samples cross to and from the device callback through two single-producer
// single-consumer ring buffers, so the callback never blocks or allocates
// once its scratch buffers are sized.
type Stream struct {
	Device Device

	mu sync.Mutex // held for the whole of a Play or Record

	open       atomic.Bool
	closed     chan struct{}
	playRing   *ringbuffer.RingBuffer // Play -> callback
	recordRing *ringbuffer.RingBuffer // callback -> Record
	playWake   chan struct{}          // callback consumed playback bytes
	recordWake chan struct{}          // callback produced recorded bytes
	recordLeft atomic.Int64           // samples still to capture

	// callback scratch
	inBytes  []byte
	outBytes []byte
}

func (s *Stream) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open.Load() {
		return nil
	}
	s.closed = make(chan struct{})
	s.playRing = ringbuffer.New(playRingSize)
	s.recordRing = ringbuffer.New(recordRingSize)
	s.playWake = make(chan struct{}, 1)
	s.recordWake = make(chan struct{}, 1)
	s.recordLeft.Store(0)

	if err := s.Device.Start(s.callback); err != nil {
		return err
	}
	s.open.Store(true)
	return nil
}

// Close stops the device. A Play or Record in progress returns ErrNotOpen.
func (s *Stream) Close() error {
	if !s.open.CompareAndSwap(true, false) {
		return nil
	}
	close(s.closed)
	return s.Device.Stop()
}

func (s *Stream) Play(samples []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open.Load() {
		return ErrNotOpen
	}
	if len(samples) == 0 {
		return nil
	}

	pcm := int32ToBytes(Float64ToInt32(samples))
	for off := 0; off < len(pcm); {
		end := min(off+playChunk, len(pcm))
		if _, err := s.playRing.Write(pcm[off:end]); err != nil {
			if err := s.wait(s.playWake); err != nil {
				return err
			}
			continue
		}
		off = end
	}

	// done once the callback has taken everything
	for s.playRing.AvailableRead() > 0 {
		if err := s.wait(s.playWake); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stream) Record(n int) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open.Load() {
		return nil, ErrNotOpen
	}
	if n <= 0 {
		return nil, nil
	}

	pcm := make([]byte, 4*n)
	s.recordLeft.Store(int64(n))
	for got := 0; got < len(pcm); {
		k, _ := s.recordRing.Read(pcm[got:])
		got += k
		if got == len(pcm) {
			break
		}
		if err := s.wait(s.recordWake); err != nil {
			s.recordLeft.Store(0)
			return nil, err
		}
	}
	return Int32ToFloat64(bytesToInt32(pcm)), nil
}

func (s *Stream) wait(wake chan struct{}) error {
	select {
	case <-wake:
		return nil
	case <-s.closed:
		return ErrNotOpen
	}
}

func (s *Stream) callback(in, out []int32) {
	if cap(s.outBytes) < 4*len(out) {
		s.outBytes = make([]byte, 4*len(out))
	}
	if cap(s.inBytes) < 4*len(in) {
		s.inBytes = make([]byte, 4*len(in))
	}

	buf := s.outBytes[:4*len(out)]
	n, _ := s.playRing.Read(buf)
	for i := 0; i < n/4; i++ {
		out[i] = int32(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	cleari32(out[n/4:])
	if n > 0 {
		notify(s.playWake)
	}

	if left := s.recordLeft.Load(); left > 0 {
		k := int(min(left, int64(len(in))))
		buf := s.inBytes[:4*k]
		for i, v := range in[:k] {
			binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
		}
		// an overrun drops the buffer and Record keeps waiting for the rest
		if _, err := s.recordRing.Write(buf); err == nil {
			s.recordLeft.Add(-int64(k))
		}
		notify(s.recordWake)
	}
}

func notify(wake chan struct{}) {
	select {
	case wake <- struct{}{}:
	default:
	}
}

func int32ToBytes(samples []int32) []byte {
	b := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(b[4*i:], uint32(v))
	}
	return b
}

func bytesToInt32(b []byte) []int32 {
	samples := make([]int32, len(b)/4)
	for i := range samples {
		samples[i] = int32(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return samples
}
