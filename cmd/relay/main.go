package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ZentaChain/lcdrelay/pkg/api"
	"github.com/ZentaChain/lcdrelay/pkg/config"
	"github.com/ZentaChain/lcdrelay/pkg/logging"
	"github.com/ZentaChain/lcdrelay/pkg/network"
	"github.com/ZentaChain/lcdrelay/pkg/storage"
)

const heartbeatInterval = 5 * time.Minute

func main() {
	if err := relayCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func relayCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Run the LCD terminal message relay",
		Long:         "Accept terminal connections over TCP (and WebSocket via the HTTP API), assign ids, broadcast the roster and forward messages between terminals.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(configPath)
			if err != nil {
				return err
			}
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.LoadRelay(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file (yaml, toml or json)")
	cmd.Flags().Int("port", 5555, "TCP port terminals connect to")
	cmd.Flags().String("http-addr", ":8080", "HTTP API address, empty disables it")
	cmd.Flags().String("journal", "", "SQLite session journal path, empty disables it")
	cmd.Flags().Duration("journal-retention", 0, "drop journal events older than this, 0 keeps them")
	cmd.Flags().Duration("write-timeout", 0, "per-write deadline on terminal connections, 0 disables it")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().Bool("log-console", true, "human-readable log output")

	return cmd
}

func run(ctx context.Context, cfg *config.Relay) error {
	root, err := logging.New(cfg.LogLevel, os.Stderr, cfg.LogConsole)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log := logging.Component(root, "relay")

	printBanner()

	registry := network.NewRegistry(logging.Component(root, "registry"))
	registry.SetWriteTimeout(cfg.WriteTimeout)

	var journal *storage.Journal
	if cfg.Journal != "" {
		journal, err = storage.OpenJournal(cfg.Journal, cfg.JournalRetention, logging.Component(root, "journal"))
		if err != nil {
			return err
		}
		defer func() {
			if err := journal.Close(); err != nil && !errors.Is(err, storage.ErrJournalClosed) {
				log.Error().Err(err).Msg("failed to close journal")
			}
		}()
		registry.AttachEventSink(journalSink(journal))
		log.Info().Str("path", cfg.Journal).Dur("retention", cfg.JournalRetention).Msg("session journal enabled")
	}

	relay := network.NewRelayServer(cfg.Port, registry, log)
	if err := relay.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.HTTPAddr != "" {
		apiConfig := api.DefaultConfig()
		apiConfig.Addr = cfg.HTTPAddr

		var events api.EventSource
		if journal != nil {
			events = journal
		}
		server := api.NewServer(registry, events, apiConfig, logging.Component(root, "api"))
		g.Go(func() error {
			return server.Start(gctx)
		})
	}

	g.Go(func() error {
		startHeartbeatLoop(gctx, relay, log)
		return nil
	})

	printStatus(cfg, relay)

	err = g.Wait()

	fmt.Println()
	log.Info().Msg("shutting down gracefully")
	if stopErr := relay.Stop(); stopErr != nil {
		log.Error().Err(stopErr).Msg("failed to stop relay")
	}
	log.Info().Msg("relay stopped")

	return err
}

// journalSink adapts registry events to journal rows. Enqueue never blocks
// the registry.
func journalSink(journal *storage.Journal) network.EventSink {
	return func(e network.Event) {
		journal.Enqueue(storage.Event{
			SessionID: e.SessionID,
			TraceID:   e.Trace,
			Name:      string(e.Name),
			Peer:      e.Peer,
			At:        e.At,
		})
	}
}

func startHeartbeatLoop(ctx context.Context, relay *network.RelayServer, log zerolog.Logger) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := relay.Registry().Stats()
			log.Info().
				Int("active", stats.Active).
				Uint64("accepted", stats.Accepted).
				Uint64("routed", stats.Routed).
				Uint64("dropped", stats.Dropped).
				Uint64("violations", stats.Violations).
				Dur("uptime", relay.Uptime().Truncate(time.Second)).
				Msg("heartbeat")
		}
	}
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════════╗")
	fmt.Println("║              LCD Terminal Relay v1.0              ║")
	fmt.Println("║        Roster and message hub for terminals       ║")
	fmt.Println("╚═══════════════════════════════════════════════════╝")
	fmt.Println()
}

func printStatus(cfg *config.Relay, relay *network.RelayServer) {
	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("Relay Server Status")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("   Status: RUNNING\n")
	fmt.Printf("   Terminals (tcp): %s\n", relay.Addr())
	if cfg.HTTPAddr != "" {
		fmt.Printf("   HTTP API: %s\n", cfg.HTTPAddr)
		fmt.Printf("   Terminals (ws): %s%s\n", cfg.HTTPAddr, network.WebSocketPath)
	} else {
		fmt.Printf("   HTTP API: DISABLED\n")
	}
	if cfg.Journal != "" {
		fmt.Printf("   Journal: %s\n", cfg.Journal)
	} else {
		fmt.Printf("   Journal: DISABLED\n")
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()
}
