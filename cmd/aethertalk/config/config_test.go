package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"Aethertalk/pkg/device"
	"Aethertalk/pkg/modem"
	"Aethertalk/pkg/outbox"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.ToneConfig() != modem.DefaultToneConfig() {
		t.Errorf("tone config = %+v", c.ToneConfig())
	}
	if c.MACLayer.NoiseFloor != 20 || c.MACLayer.TickInterval != 500*time.Millisecond ||
		c.MACLayer.SenseDuration != time.Second || c.MACLayer.ListenDuration != 5*time.Second {
		t.Errorf("mac layer = %+v", c.MACLayer)
	}
	// 1 s at 100 ms per bit never exceeds a floor of 20
	if c.SenseCapacity() != 10 {
		t.Errorf("SenseCapacity = %d", c.SenseCapacity())
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := writeConfig(t, `
device:
  type: asio
  device_name: "ASIO4ALL v2"
  sample_rate: 48000
physical_layer:
  bit_duration: 50ms
mac_layer:
  outbox: ./queue
  sense_duration: 3s
log:
  level: debug
`)
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Device.Type != "asio" || c.Device.DeviceName != "ASIO4ALL v2" || c.Device.SampleRate != 48000 {
		t.Errorf("device = %+v", c.Device)
	}
	if c.PhysicalLayer.BitDuration != 50*time.Millisecond {
		t.Errorf("bit_duration = %v", c.PhysicalLayer.BitDuration)
	}
	// untouched keys keep their defaults
	if c.PhysicalLayer.MarkFreq != 1500 || c.MACLayer.ListenDuration != 5*time.Second {
		t.Errorf("defaults lost: %+v %+v", c.PhysicalLayer, c.MACLayer)
	}
	if c.MACLayer.Outbox != "./queue" {
		t.Errorf("outbox = %q", c.MACLayer.Outbox)
	}
	if c.SenseCapacity() != 60 {
		t.Errorf("SenseCapacity = %d", c.SenseCapacity())
	}
	if c.LogLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v", c.LogLevel())
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); !os.IsNotExist(err) {
		t.Errorf("expected not exist, got %v", err)
	}

	cases := map[string]string{
		"syntax":      "device: [",
		"sample rate": "device:\n  sample_rate: 0\n",
		"same tones":  "physical_layer:\n  mark_freq: 1000\n",
		"nyquist":     "device:\n  sample_rate: 2000\n",
		"amplitude":   "physical_layer:\n  amplitude: 2\n",
		"bit length":  "physical_layer:\n  bit_duration: 1ns\n",
	}
	for name, text := range cases {
		if _, err := LoadConfig(writeConfig(t, text)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestCreateDevice(t *testing.T) {
	c := Default()
	dev, err := CreateDevice(c)
	if err != nil {
		t.Fatal(err)
	}
	if pa, ok := dev.(*device.PortAudio); !ok || pa.SampleRate != 44100 {
		t.Errorf("got %#v", dev)
	}

	c.Device.Type = "asio"
	if dev, _ := CreateDevice(c); dev == nil {
		t.Errorf("no asio device")
	} else if _, ok := dev.(*device.ASIOMono); !ok {
		t.Errorf("got %T", dev)
	}

	c.Device.Type = "jack"
	if _, err := CreateDevice(c); err == nil {
		t.Errorf("unknown device type accepted")
	}
}

func TestCreateMACLayerOverWAV(t *testing.T) {
	dir := t.TempDir()
	c := Default()
	c.Device.WAVOut = filepath.Join(dir, "out.wav")
	c.MACLayer.Outbox = filepath.Join(dir, "outbox")

	audio, release, err := CreateAudio(c)
	if err != nil {
		t.Fatal(err)
	}
	defer release()
	if _, ok := audio.(*device.WAVFile); !ok {
		t.Fatalf("got %T", audio)
	}

	phy := CreatePhysicalLayer(c, audio, nil)
	if phy.Codec.SamplesPerBit() != 4410 {
		t.Errorf("SamplesPerBit = %d", phy.Codec.SamplesPerBit())
	}
	mac := CreateMACLayer(c, phy, nil)
	if box, ok := mac.Outbox.(outbox.Dir); !ok || box.Path != c.MACLayer.Outbox {
		t.Errorf("outbox = %#v", mac.Outbox)
	}
	if mac.SenseDuration != time.Second || mac.ListenDuration != 5*time.Second {
		t.Errorf("durations = %v %v", mac.SenseDuration, mac.ListenDuration)
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	c, err := LoadConfig(filepath.Join("..", "..", "..", "config.yml"))
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	if c.MACLayer != want.MACLayer {
		t.Errorf("mac_layer = %+v, expected %+v", c.MACLayer, want.MACLayer)
	}
	if c.PhysicalLayer != want.PhysicalLayer {
		t.Errorf("physical_layer = %+v, expected %+v", c.PhysicalLayer, want.PhysicalLayer)
	}
}
