package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"anima/internal/engine"
	"anima/internal/evolve"
	"anima/internal/genome"
	"anima/internal/server"
	"anima/internal/stash"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, cfg, err := openEngine()
	if err != nil {
		return err
	}

	kv, err := stash.Open(cfg.Memory.Root)
	if err != nil {
		return fmt.Errorf("open stash: %w", err)
	}
	defer kv.Close()

	evo := evolve.New(eng.Docs, eng.State, cfg.Evolution)

	// Watch the genome documents for external tampering while serving.
	watcher := genome.Watch(eng.Genome)
	defer watcher.Stop()

	// Internal heartbeat: the tick is coarse and idempotent, so an
	// external timer hitting /api/heartbeat as well does no harm.
	stopBeat := startHeartbeat(eng, cfg.Heartbeat.IntervalMinutes)
	defer close(stopBeat)

	srv := server.New(eng, evo, kv, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "anima serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  root: %s\n", cfg.Memory.Root)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

// startHeartbeat ticks the engine pulse once at startup and then at the
// configured interval.
func startHeartbeat(eng *engine.Engine, intervalMinutes int) chan struct{} {
	if intervalMinutes <= 0 {
		intervalMinutes = 30
	}
	stop := make(chan struct{})

	if pulse, err := eng.Heartbeat(); err != nil {
		fmt.Fprintf(os.Stderr, "heartbeat: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "  %s\n", pulse)
	}

	go func() {
		ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := eng.Heartbeat(); err != nil {
					fmt.Fprintf(os.Stderr, "heartbeat: %v\n", err)
				}
			case <-stop:
				return
			}
		}
	}()
	return stop
}
