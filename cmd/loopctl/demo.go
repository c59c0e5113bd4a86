package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loopkit/loopkit"
	"github.com/loopkit/loopkit/internal/demo"
	"github.com/loopkit/loopkit/internal/logging"
	"github.com/loopkit/loopkit/pkg/adapters/httpapi"
	"github.com/loopkit/loopkit/pkg/adapters/memory"
	"github.com/loopkit/loopkit/pkg/adapters/redis"
	"github.com/loopkit/loopkit/pkg/adapters/sqlite"
	"github.com/loopkit/loopkit/pkg/observability"
	"github.com/loopkit/loopkit/pkg/ports"
	"github.com/loopkit/loopkit/pkg/system"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the built-in authentication loop behind the HTTP adapter",
	Long: `Starts the demo authentication feedback loop and serves it over HTTP:

  GET  /state    latest state snapshot
  POST /events   event intake ({"kind": "login", "payload": {...}})
  GET  /watch    SSE stream of state changes
  GET  /metrics  Prometheus metrics

With a journal backend configured, applied events are persisted and the
state is restored on startup by replaying the journal.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		levelName, _ := cmd.Flags().GetString("log-level")
		logJSON, _ := cmd.Flags().GetBool("log-json")
		addr, _ := cmd.Flags().GetString("listen")

		logger := logging.New(logLevel(levelName), logJSON)

		cfg, err := LoadConfig(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("listen") {
			cfg.Listen = addr
		}

		app, err := buildDemo(cfg, logger)
		if err != nil {
			fmt.Printf("Error initializing loop: %v\n", err)
			os.Exit(1)
		}
		defer app.close()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.metrics, promhttp.HandlerOpts{}))
		mux.Handle("/", httpapi.NewHandler(app.handle, httpapi.WithLogger(logger)))

		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: mux,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("demo loop serving", "addr", srv.Addr, "loop_id", cfg.LoopID, "journal", cfg.Journal.Backend)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
		logger.Info("demo loop stopped gracefully")
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().StringP("listen", "l", ":8080", "Address to listen on")
}

// demoApp bundles everything a command needs to host the demo loop.
type demoApp struct {
	handle  *loopkit.Handle[demo.State, demo.Event]
	metrics *prometheus.Registry
	close   func()
}

// buildDemo assembles the demo loop: journal backend per config, state
// restored from the journal, metrics hooks, and the serialization handle
// the adapters consume.
func buildDemo(cfg Config, logger *slog.Logger) (*demoApp, error) {
	delay, err := cfg.authDelay()
	if err != nil {
		return nil, err
	}

	var (
		journal   ports.Journal
		snapshots ports.SnapshotStore
		closers   []func() error
	)
	switch cfg.Journal.Backend {
	case "", "none":
	case "memory":
		journal = memory.NewJournal()
		snapshots = memory.NewSnapshotStore()
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Journal.Redis.Addr})
		opts := []redis.Option{}
		if cfg.Journal.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Journal.Redis.Prefix))
		}
		journal = redis.NewJournal(client, opts...)
		snapshots = redis.NewSnapshotStore(client, opts...)
		closers = append(closers, client.Close)
	case "sqlite":
		store, err := sqlite.Open(cfg.Journal.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite journal: %w", err)
		}
		journal = store
		snapshots = store
		closers = append(closers, store.Close)
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Journal.Backend)
	}

	registry := demo.NewRegistry()
	encodeState, decodeState := loopkit.JSONState[demo.State]()

	initial := demo.Initial()
	if journal != nil {
		restored, seq, err := loopkit.Restore(context.Background(), snapshots, journal, cfg.LoopID, initial, decodeState, demo.Reduce, registry)
		if err != nil {
			return nil, fmt.Errorf("restoring loop %q: %w", cfg.LoopID, err)
		}
		if seq > 0 {
			logger.Info("state restored from journal", "loop_id", cfg.LoopID, "seq", seq)
		}
		initial = restored
	}

	feedbacks := demo.Feedbacks(demo.FakeAuthenticator(delay))
	if journal != nil {
		jopts := []loopkit.JournalerOption[demo.State, demo.Event]{
			loopkit.WithJournalLogger[demo.State, demo.Event](logger),
		}
		if cfg.SnapshotEvery > 0 {
			jopts = append(jopts, loopkit.WithSnapshots[demo.State, demo.Event](snapshots, encodeState, cfg.SnapshotEvery))
		}
		journaler := loopkit.NewJournaler(cfg.LoopID, journal, registry, jopts...)
		feedbacks = append(feedbacks, journaler.Feedback())
	}

	promReg := prometheus.NewRegistry()
	m := observability.NewMetrics(promReg, cfg.LoopID)

	store := loopkit.NewStore(initial, demo.Reduce, feedbacks,
		system.WithLogger[demo.State, demo.Event](logger),
		system.WithHooks(observability.Hooks[demo.State, demo.Event](m, func(e demo.Event) string { return e.Kind() })),
	)
	observability.QueueGauge(promReg, cfg.LoopID, store.System())

	return &demoApp{
		handle:  loopkit.Expose(store, registry, encodeState),
		metrics: promReg,
		close: func() {
			store.Close()
			for _, fn := range closers {
				if err := fn(); err != nil {
					logger.Warn("close failed", "error", err)
				}
			}
		},
	}, nil
}
