package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"Aethertalk/cmd/aethertalk/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send the files of the outbox directory, listening in between",
	Long: `run polls the outbox directory every tick. When a file is waiting it senses
the channel and sends the file only if the channel is free, then deletes it.
Otherwise it listens for a while so other nodes can talk.

Stop with Ctrl-C; the current step finishes first.`,
	Args: cobra.NoArgs,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	phy, release, err := openPhysical()
	if err != nil {
		return err
	}
	defer release()

	mac := config.CreateMACLayer(cfg, phy, &log.Logger)
	log.Info().Str("outbox", cfg.MACLayer.Outbox).Msg("radio controller starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().Stringer("signal", sig).Msg("signal received, stopping")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		return mac.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("scheduler stopped")
		return err
	}
	log.Info().Msg("exiting")
	return nil
}
