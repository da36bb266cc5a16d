package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"Aethertalk/cmd/aethertalk/config"
)

var senseDuration time.Duration

var senseCmd = &cobra.Command{
	Use:   "sense",
	Short: "Report whether the channel is busy",
	Args:  cobra.NoArgs,
	RunE:  runSense,
}

func init() {
	rootCmd.AddCommand(senseCmd)
	senseCmd.Flags().DurationVarP(&senseDuration, "duration", "d", 0, "Sensing window (default from config)")
}

func runSense(cmd *cobra.Command, args []string) error {
	d := cfg.MACLayer.SenseDuration
	if senseDuration > 0 {
		d = senseDuration
	}

	phy, release, err := openPhysical()
	if err != nil {
		return err
	}
	defer release()

	state, err := config.CreateChannelSensor(cfg, phy).Sense(d)
	if err != nil {
		return err
	}
	fmt.Printf("Channel is %s.\n", state)
	return nil
}
