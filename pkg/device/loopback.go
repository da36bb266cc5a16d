package device

import (
	"errors"
	"time"

	"golang.org/x/exp/rand"
)

// Loopback feeds every output buffer back as the next input buffer.
type Loopback struct {
	SampleRate float64 // pacing of the buffers, 0 means no limit
	Noise      float64 // amplitude of white noise added to the input
	Seed       uint64

	done chan struct{}
}

func (d *Loopback) Start(callback func(in, out []int32)) error {
	if d.done != nil {
		return errors.New("loopback already started")
	}
	d.done = make(chan struct{})
	done := d.done
	rng := rand.New(rand.NewSource(d.Seed))

	go func() {
		var buf = make([][]int32, 2)
		buf[0] = alloci32(BufferSize)
		buf[1] = alloci32(BufferSize)

		swap := true
		update := func() {
			in, out := buf[0], buf[1]
			if !swap {
				in, out = out, in
			}
			noisei32(rng, in, d.Noise)
			callback(in, out)
			swap = !swap
		}

		if d.SampleRate == 0 {
			for {
				select {
				case <-done:
					return
				default:
					update()
				}
			}
		}

		ticker := time.NewTicker(bufferPeriod(d.SampleRate))
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				update()
			}
		}
	}()
	return nil
}

func (d *Loopback) Stop() error {
	if d.done == nil {
		return errors.New("loopback not started")
	}
	close(d.done)
	d.done = nil
	return nil
}
