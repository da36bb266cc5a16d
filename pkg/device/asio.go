//go:build windows

package device

import (
	"errors"
	"fmt"

	"github.com/xsjk/go-asio"
)

// ASIOMono drives one input and one output channel of an ASIO driver.
type ASIOMono struct {
	DeviceName string
	SampleRate float64
	InChannel  int
	OutChannel int

	device  asio.Device
	started bool
}

func (a *ASIOMono) Start(callback func(in, out []int32)) error {
	if a.started {
		return errors.New("asio device already started")
	}
	if a.InChannel < 0 || a.OutChannel < 0 {
		return fmt.Errorf("invalid asio channels in=%d out=%d", a.InChannel, a.OutChannel)
	}
	a.device.Load(a.DeviceName)
	a.device.SetSampleRate(a.SampleRate)
	a.device.Open()
	a.device.Start(func(in, out [][]int32) {
		if a.InChannel >= len(in) || a.OutChannel >= len(out) {
			return
		}
		callback(in[a.InChannel], out[a.OutChannel])
	})
	a.started = true
	return nil
}

func (a *ASIOMono) Stop() error {
	if !a.started {
		return errors.New("asio device not started")
	}
	a.device.Stop()
	a.device.Close()
	a.device.Unload()
	a.started = false
	return nil
}
