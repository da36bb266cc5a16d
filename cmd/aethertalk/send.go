package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var sendText string

var sendCmd = &cobra.Command{
	Use:   "send [file]",
	Short: "Transmit the contents of a file, or --text, as one frame",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendText, "text", "t", "", "Text to send instead of a file")
}

func runSend(cmd *cobra.Command, args []string) error {
	text := sendText
	switch {
	case len(args) == 1 && sendText != "":
		return errors.New("give either a file or --text, not both")
	case len(args) == 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		text = string(data)
	case !cmd.Flags().Changed("text"):
		return errors.New("nothing to send: give a file or --text")
	}

	phy, release, err := openPhysical()
	if err != nil {
		return err
	}
	defer release()

	if err := phy.Send(text); err != nil {
		log.Error().Err(err).Msg("transmission failed")
		return err
	}
	return nil
}
