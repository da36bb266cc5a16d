package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"Aethertalk/pkg/frame"
)

var receiveDuration time.Duration

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Record for a while and decode the first frame heard",
	Args:  cobra.NoArgs,
	RunE:  runReceive,
}

func init() {
	rootCmd.AddCommand(receiveCmd)
	receiveCmd.Flags().DurationVarP(&receiveDuration, "duration", "d", 0, "Recording length (default from config)")
}

func runReceive(cmd *cobra.Command, args []string) error {
	d := cfg.PhysicalLayer.ReceiveDuration
	if receiveDuration > 0 {
		d = receiveDuration
	}

	phy, release, err := openPhysical()
	if err != nil {
		return err
	}
	defer release()

	text, bits, err := phy.Receive(d)
	if err != nil && !isFrameError(err) {
		return err
	}
	fmt.Printf("Total bits received: %d\n", len(bits))
	if err != nil {
		log.Debug().Err(err).Msg("decoding failed")
		fmt.Println(frame.Marker(err))
		return nil
	}
	fmt.Println("Decoded message:", text)
	return nil
}

func isFrameError(err error) bool {
	return errors.Is(err, frame.ErrSyncNotFound) ||
		errors.Is(err, frame.ErrMalformedEncoding) ||
		errors.Is(err, frame.ErrCRCMismatch)
}
