package device

import "time"

// Device drives a mono audio interface through a periodic callback. in holds
// the samples captured since the previous call; out must be filled with the
// samples to play next.
type Device interface {
	Start(callback func(in, out []int32)) error
	Stop() error
}

// Audio is the blocking view of a device used by the link layer.
type Audio interface {
	// Play returns once every sample has been handed to the device.
	Play(samples []float64) error
	// Record captures n samples starting now.
	Record(n int) ([]float64, error)
}

const BufferSize = 512

// bufferPeriod is the real time one callback buffer represents.
func bufferPeriod(sampleRate float64) time.Duration {
	return time.Duration(float64(BufferSize) / sampleRate * float64(time.Second))
}
