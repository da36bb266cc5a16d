package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"Aethertalk/cmd/aethertalk/config"
	"Aethertalk/pkg/layers"
)

var (
	configPath string
	verbose    bool
	wavIn      string
	wavOut     string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "aethertalk",
	Short: "Half-duplex text messaging over sound",
	Long: `aethertalk sends short ASCII messages between machines through a speaker
and a microphone using two-tone FSK.

Every frame starts with a 16 bit sync word followed by the base64 text and a
CRC-8 trailer. Nodes share the channel by listening before they talk.

Commands:
  - send:    transmit a file or a text once
  - receive: record and decode one frame
  - sense:   report whether the channel is busy
  - run:     serve an outbox directory until interrupted`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&wavIn, "wav-in", "", "Record from a WAV file instead of the sound card")
	rootCmd.PersistentFlags().StringVar(&wavOut, "wav-out", "", "Play into a WAV file instead of the sound card")
}

// Execute runs the command line and exits with 1 on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)

	var err error
	cfg, err = config.LoadConfig(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		log.Info().Str("config", configPath).Msg("no config file, using defaults")
		cfg = config.Default()
		if err := cfg.Validate(); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	level := cfg.LogLevel()
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Logger.Level(level)

	if wavIn != "" {
		cfg.Device.WAVIn = wavIn
	}
	if wavOut != "" {
		cfg.Device.WAVOut = wavOut
	}
	return nil
}

// openPhysical builds the physical layer over the configured audio backend.
// The returned function releases the backend.
func openPhysical() (*layers.PhysicalLayer, func(), error) {
	usePortAudio := (cfg.Device.Type == "" || cfg.Device.Type == "portaudio") &&
		cfg.Device.WAVIn == "" && cfg.Device.WAVOut == ""

	if usePortAudio {
		log.Debug().Msg("initializing PortAudio")
		if err := portaudio.Initialize(); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
		}
	}

	audio, release, err := config.CreateAudio(cfg)
	if err != nil {
		if usePortAudio {
			portaudio.Terminate()
		}
		return nil, nil, err
	}

	closer := func() {
		if err := release(); err != nil {
			log.Warn().Err(err).Msg("failed to close audio device")
		}
		if usePortAudio {
			portaudio.Terminate()
		}
	}
	return config.CreatePhysicalLayer(cfg, audio, &log.Logger), closer, nil
}
