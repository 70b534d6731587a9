package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ZentaChain/lcdrelay/pkg/config"
	"github.com/ZentaChain/lcdrelay/pkg/lcd"
	"github.com/ZentaChain/lcdrelay/pkg/logging"
	"github.com/ZentaChain/lcdrelay/pkg/network"
	"github.com/ZentaChain/lcdrelay/pkg/terminal"
)

const dialTimeout = 10 * time.Second

func main() {
	if err := terminalCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func terminalCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "terminal",
		Short:        "Run an emulated LCD terminal",
		Long:         "Connect to a relay and drive a 4x20 character display with five buttons: arrows or WASD to move, Enter or Space to select, q to quit.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(configPath)
			if err != nil {
				return err
			}
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.LoadTerminal(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file (yaml, toml or json)")
	cmd.Flags().String("relay", "127.0.0.1:5555", "relay address host:port")
	cmd.Flags().String("transport", network.TransportTCP, "relay transport: tcp or ws")
	cmd.Flags().String("log-file", "terminal.log", "log file; the display owns the TTY")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().Duration("tick", terminal.DefaultTick, "UI loop period")
	cmd.Flags().Duration("settle", terminal.DefaultSettle, "debounce settle interval")
	cmd.Flags().Duration("hold", lcd.DefaultHold, "how long a key press holds its line")

	return cmd
}

func run(ctx context.Context, cfg *config.Terminal) error {
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	root, err := logging.New(cfg.LogLevel, logFile, false)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log := logging.Component(root, "terminal")

	dialCtx, cancelDial := context.WithTimeout(ctx, dialTimeout)
	conn, err := network.Dial(dialCtx, cfg.Transport, cfg.Relay)
	cancelDial()
	if err != nil {
		return fmt.Errorf("failed to connect to relay %s: %w", cfg.Relay, err)
	}

	state := terminal.NewState()
	link := network.NewLink(conn, state, logging.Component(root, "link"))
	log.Info().Str("relay", link.RemoteAddr()).Str("transport", cfg.Transport).Msg("connected")

	grid := lcd.NewGrid()
	buttons := lcd.NewButtons(cfg.Hold)
	ui := terminal.NewUI(grid, buttons, state, link, terminal.Options{
		Tick:         cfg.Tick,
		Settle:       cfg.Settle,
		QuickReplies: cfg.QuickReplies,
	}, logging.Component(root, "ui"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// The relay closing the connection ends the terminal.
	g.Go(func() error {
		defer cancel()
		return link.Run()
	})
	g.Go(func() error {
		return ui.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return lcd.Run(gctx, grid, buttons, status(state))
	})
	g.Go(func() error {
		<-gctx.Done()
		link.Close()
		return nil
	})

	err = g.Wait()
	if err != nil {
		log.Error().Err(err).Msg("terminal stopped")
		return err
	}
	log.Info().Msg("terminal stopped")
	return nil
}

func status(state *terminal.State) func() string {
	return func() string {
		self := state.Self()
		if self == 0 {
			return "connecting"
		}
		return fmt.Sprintf("client #%d  %d peers", self, state.PeerCount())
	}
}
