package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"Aethertalk/pkg/device"
	"Aethertalk/pkg/frame"
	"Aethertalk/pkg/layers"
	"Aethertalk/pkg/modem"
	"Aethertalk/pkg/outbox"
)

type Config struct {
	Device struct {
		Type            string  `yaml:"type"` // portaudio, asio or wav
		DeviceName      string  `yaml:"device_name"`
		InputDevice     int     `yaml:"input_device"`
		OutputDevice    int     `yaml:"output_device"`
		SampleRate      float64 `yaml:"sample_rate"`
		FramesPerBuffer int     `yaml:"frames_per_buffer"`
		WAVIn           string  `yaml:"wav_in"`
		WAVOut          string  `yaml:"wav_out"`
	} `yaml:"device"`

	PhysicalLayer struct {
		BitDuration     time.Duration `yaml:"bit_duration"`
		MarkFreq        float64       `yaml:"mark_freq"`
		SpaceFreq       float64       `yaml:"space_freq"`
		Amplitude       float64       `yaml:"amplitude"`
		Threshold       float64       `yaml:"threshold"`
		BandHalfWidth   float64       `yaml:"band_half_width"`
		ReceiveDuration time.Duration `yaml:"receive_duration"`
	} `yaml:"physical_layer"`

	MACLayer struct {
		Outbox         string        `yaml:"outbox"`
		NoiseFloor     int           `yaml:"noise_floor"`
		TickInterval   time.Duration `yaml:"tick_interval"`
		SenseDuration  time.Duration `yaml:"sense_duration"`
		ListenDuration time.Duration `yaml:"listen_duration"`
	} `yaml:"mac_layer"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the settings of the reference link: 44.1 kHz, 100 ms per
// bit, 1500/1000 Hz tones and a 20 bit noise floor.
func Default() *Config {
	var c Config
	tone := modem.DefaultToneConfig()

	c.Device.Type = "portaudio"
	c.Device.SampleRate = tone.SampleRate
	c.Device.FramesPerBuffer = device.BufferSize

	c.PhysicalLayer.BitDuration = tone.BitDuration
	c.PhysicalLayer.MarkFreq = tone.MarkFreq
	c.PhysicalLayer.SpaceFreq = tone.SpaceFreq
	c.PhysicalLayer.Amplitude = tone.Amplitude
	c.PhysicalLayer.Threshold = tone.Threshold
	c.PhysicalLayer.BandHalfWidth = tone.BandHalfWidth
	c.PhysicalLayer.ReceiveDuration = 5 * time.Second

	c.MACLayer.Outbox = "transmit"
	c.MACLayer.NoiseFloor = layers.DefaultNoiseFloor
	c.MACLayer.TickInterval = layers.DefaultTickInterval
	c.MACLayer.SenseDuration = layers.DefaultSenseDuration
	c.MACLayer.ListenDuration = layers.DefaultListenDuration

	c.Log.Level = "info"
	return &c
}

// LoadConfig overlays the file on Default. Keys missing from the file keep
// their default value.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return config, nil
}

func (c *Config) ToneConfig() modem.ToneConfig {
	return modem.ToneConfig{
		SampleRate:    c.Device.SampleRate,
		BitDuration:   c.PhysicalLayer.BitDuration,
		MarkFreq:      c.PhysicalLayer.MarkFreq,
		SpaceFreq:     c.PhysicalLayer.SpaceFreq,
		Amplitude:     c.PhysicalLayer.Amplitude,
		Threshold:     c.PhysicalLayer.Threshold,
		BandHalfWidth: c.PhysicalLayer.BandHalfWidth,
	}
}

// Validate rejects settings no link can run with. A sense window too short
// to ever exceed the noise floor is legal but logged, since such a node
// always finds the channel free.
func (c *Config) Validate() error {
	if c.Device.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %v", c.Device.SampleRate)
	}
	if modem.SamplesIn(c.PhysicalLayer.BitDuration, c.Device.SampleRate) <= 0 {
		return fmt.Errorf("bit_duration %v is shorter than one sample", c.PhysicalLayer.BitDuration)
	}
	if c.PhysicalLayer.MarkFreq == c.PhysicalLayer.SpaceFreq {
		return fmt.Errorf("mark and space share the frequency %v", c.PhysicalLayer.MarkFreq)
	}
	if nyquist := c.Device.SampleRate / 2; c.PhysicalLayer.MarkFreq >= nyquist || c.PhysicalLayer.SpaceFreq >= nyquist {
		return fmt.Errorf("tones must stay below %v Hz", nyquist)
	}
	if c.PhysicalLayer.Amplitude <= 0 || c.PhysicalLayer.Amplitude > 1 {
		return fmt.Errorf("amplitude must be in (0, 1], got %v", c.PhysicalLayer.Amplitude)
	}
	if c.MACLayer.NoiseFloor < 0 {
		return fmt.Errorf("noise_floor must not be negative, got %d", c.MACLayer.NoiseFloor)
	}
	if c.SenseCapacity() <= c.MACLayer.NoiseFloor {
		log.Warn().
			Int("bits", c.SenseCapacity()).
			Int("noise_floor", c.MACLayer.NoiseFloor).
			Msg("sense window cannot exceed the noise floor, the channel will always be sensed free")
	}
	return nil
}

// SenseCapacity is the most bits a sense window can decode.
func (c *Config) SenseCapacity() int {
	perBit := modem.SamplesIn(c.PhysicalLayer.BitDuration, c.Device.SampleRate)
	if perBit <= 0 {
		return 0
	}
	return modem.SamplesIn(c.MACLayer.SenseDuration, c.Device.SampleRate) / perBit
}

func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || c.Log.Level == "" {
		return zerolog.InfoLevel
	}
	return level
}

// CreateDevice returns the callback device for live operation.
func CreateDevice(config *Config) (device.Device, error) {
	switch config.Device.Type {
	case "", "portaudio":
		return &device.PortAudio{
			InputDevice:     config.Device.InputDevice,
			OutputDevice:    config.Device.OutputDevice,
			SampleRate:      config.Device.SampleRate,
			FramesPerBuffer: config.Device.FramesPerBuffer,
		}, nil
	case "asio":
		return &device.ASIOMono{
			DeviceName: config.Device.DeviceName,
			SampleRate: config.Device.SampleRate,
		}, nil
	default:
		return nil, fmt.Errorf("unknown device type %q", config.Device.Type)
	}
}

// CreateAudio returns a WAV file backend when wav_in or wav_out is set, and
// an opened stream over CreateDevice otherwise. The returned function
// releases it.
func CreateAudio(config *Config) (device.Audio, func() error, error) {
	if config.Device.Type == "wav" || config.Device.WAVIn != "" || config.Device.WAVOut != "" {
		wav := &device.WAVFile{
			InputPath:  config.Device.WAVIn,
			OutputPath: config.Device.WAVOut,
			SampleRate: config.Device.SampleRate,
		}
		return wav, func() error { return nil }, nil
	}

	dev, err := CreateDevice(config)
	if err != nil {
		return nil, nil, err
	}
	stream := &device.Stream{Device: dev}
	if err := stream.Open(); err != nil {
		return nil, nil, fmt.Errorf("failed to open %s device: %w", config.Device.Type, err)
	}
	return stream, stream.Close, nil
}

func CreatePhysicalLayer(config *Config, audio device.Audio, logger *zerolog.Logger) *layers.PhysicalLayer {
	return &layers.PhysicalLayer{
		Audio:      audio,
		Codec:      config.ToneConfig().New(),
		Framer:     frame.Codec{},
		SampleRate: config.Device.SampleRate,
		Logger:     logger,
	}
}

func CreateChannelSensor(config *Config, physical *layers.PhysicalLayer) layers.ChannelSensor {
	return layers.ChannelSensor{
		Physical:   physical,
		NoiseFloor: config.MACLayer.NoiseFloor,
	}
}

func CreateMACLayer(config *Config, physical *layers.PhysicalLayer, logger *zerolog.Logger) *layers.MACLayer {
	return &layers.MACLayer{
		Physical:       physical,
		Sensor:         CreateChannelSensor(config, physical),
		Outbox:         outbox.Dir{Path: config.MACLayer.Outbox},
		TickInterval:   config.MACLayer.TickInterval,
		SenseDuration:  config.MACLayer.SenseDuration,
		ListenDuration: config.MACLayer.ListenDuration,
		Logger:         logger,
	}
}
