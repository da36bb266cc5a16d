package device

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// NetworkConfig lists, for every node, the medium it listens to and the
// medium it talks into. Two nodes sharing one ID for both form a shared
// half-duplex channel.
type NetworkConfig[BufferIDType comparable] []struct {
	In  BufferIDType
	Out BufferIDType
}

type networkNode[BufferIDType comparable] struct {
	*Network[BufferIDType]
	input    []int32
	output   []int32
	callback func([]int32, []int32)
	started  bool
}

// Network simulates the air between several devices: on every buffer period
// the outputs of all nodes are summed into the medium they talk into and
// delivered to the nodes listening to it on the next period.
type Network[BufferIDType comparable] struct {
	SampleRate float64                     // pacing of the buffers, 0 means no limit
	Config     NetworkConfig[BufferIDType] // the topology of the network
	Noise      float64                     // amplitude of white noise on every medium
	Seed       uint64
	LateUpdate func() // the post process function

	mu      sync.Mutex
	running bool
	rng     *rand.Rand
	buffers map[BufferIDType][]int32
	devices []*networkNode[BufferIDType]
	done    chan struct{}
}

func (n *Network[BufferIDType]) getBuffer(name BufferIDType) []int32 {
	buf, ok := n.buffers[name]
	if !ok {
		buf = alloci32(BufferSize)
		n.buffers[name] = buf
	}
	return buf
}

// Build returns one Device per entry of Config, in order.
func (n *Network[BufferIDType]) Build() []Device {
	n.buffers = make(map[BufferIDType][]int32)
	n.rng = rand.New(rand.NewSource(n.Seed))
	n.devices = nil
	devices := make([]Device, 0, len(n.Config))
	for _, deviceConfig := range n.Config {
		node := &networkNode[BufferIDType]{
			Network: n,
			input:   n.getBuffer(deviceConfig.In),
			output:  alloci32(BufferSize),
		}
		n.devices = append(n.devices, node)
		devices = append(devices, node)
	}
	return devices
}

func (n *Network[BufferIDType]) update() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, d := range n.devices {
		if d.callback != nil {
			d.callback(d.input, d.output)
		} else {
			cleari32(d.output)
		}
	}

	for _, buf := range n.buffers {
		cleari32(buf)
	}

	// sum up the output of all the devices to the input buffer
	for i, deviceConfig := range n.Config {
		buf := n.buffers[deviceConfig.Out]
		sumi32(buf, n.devices[i].output, buf)
	}

	for _, buf := range n.buffers {
		noisei32(n.rng, buf, n.Noise)
	}

	if n.LateUpdate != nil {
		n.LateUpdate()
	}
}

func (n *Network[BufferIDType]) run(done chan struct{}) {
	if n.SampleRate == 0 {
		for {
			select {
			case <-done:
				return
			default:
				n.update()
			}
		}
	}

	ticker := time.NewTicker(bufferPeriod(n.SampleRate))
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			n.update()
		}
	}
}

// Stop halts the simulation regardless of the nodes still started.
func (n *Network[BufferIDType]) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, d := range n.devices {
		d.callback = nil
		d.started = false
	}
	if n.running {
		close(n.done)
		n.running = false
	}
}

func (d *networkNode[BufferIDType]) Start(callback func([]int32, []int32)) error {
	n := d.Network
	n.mu.Lock()
	defer n.mu.Unlock()

	if d.started {
		return errors.New("network node already started")
	}
	d.callback = callback
	d.started = true

	if !n.running {
		n.running = true
		n.done = make(chan struct{})
		go n.run(n.done)
	}
	return nil
}

func (d *networkNode[BufferIDType]) Stop() error {
	n := d.Network
	n.mu.Lock()
	defer n.mu.Unlock()

	if !d.started {
		return errors.New("network node not started")
	}
	d.callback = nil
	d.started = false

	// the medium stops with its last node
	for _, other := range n.devices {
		if other.started {
			return nil
		}
	}
	if n.running {
		close(n.done)
		n.running = false
	}
	return nil
}
