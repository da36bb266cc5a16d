//go:build !windows

package device

import "errors"

// ASIOMono is only available on Windows.
type ASIOMono struct {
	DeviceName string
	SampleRate float64
	InChannel  int
	OutChannel int
}

var errASIOUnsupported = errors.New("asio is only supported on windows")

func (a *ASIOMono) Start(callback func(in, out []int32)) error {
	return errASIOUnsupported
}

func (a *ASIOMono) Stop() error {
	return errASIOUnsupported
}
