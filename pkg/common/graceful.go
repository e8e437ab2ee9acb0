package common

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

// ShutdownHook runs after a termination signal and before the server stops
// accepting requests. Errors are logged, shutdown continues regardless.
type ShutdownHook func(ctx context.Context) error

// TimeoutConfig holds server and shutdown timeouts.
type TimeoutConfig struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
	Shutdown   time.Duration
	Hook       time.Duration
}

var DefaultTimeouts = TimeoutConfig{
	ReadHeader: 5 * time.Second,
	Read:       15 * time.Second,
	Write:      30 * time.Second,
	Idle:       60 * time.Second,
	Shutdown:   15 * time.Second,
	Hook:       5 * time.Second,
}

// LoadTimeoutConfig overrides defaults from environment variables holding
// a number of seconds. Values that are not positive integers are ignored.
//
//	READ_HEADER_TIMEOUT READ_TIMEOUT WRITE_TIMEOUT
//	IDLE_TIMEOUT SHUTDOWN_TIMEOUT HOOK_TIMEOUT
func LoadTimeoutConfig(defaults TimeoutConfig) TimeoutConfig {
	apply := func(curr *time.Duration, env string) {
		if v := os.Getenv(env); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*curr = time.Duration(n) * time.Second
			}
		}
	}
	apply(&defaults.ReadHeader, "READ_HEADER_TIMEOUT")
	apply(&defaults.Read, "READ_TIMEOUT")
	apply(&defaults.Write, "WRITE_TIMEOUT")
	apply(&defaults.Idle, "IDLE_TIMEOUT")
	apply(&defaults.Shutdown, "SHUTDOWN_TIMEOUT")
	apply(&defaults.Hook, "HOOK_TIMEOUT")
	return defaults
}

func NewServerWithTimeouts(addr string, handler http.Handler, cfg TimeoutConfig) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeader,
		ReadTimeout:       cfg.Read,
		WriteTimeout:      cfg.Write,
		IdleTimeout:       cfg.Idle,
	}
}

func runHooks(ctx context.Context, hookTimeout time.Duration, hooks []ShutdownHook) {
	if hookTimeout <= 0 {
		hookTimeout = 5 * time.Second
	}
	for i, h := range hooks {
		if h == nil {
			continue
		}
		hCtx, hCancel := context.WithTimeout(ctx, hookTimeout)
		if err := h(hCtx); err != nil {
			log.Printf("shutdown hook %d failed: %v", i, err)
		}
		if errors.Is(hCtx.Err(), context.DeadlineExceeded) {
			log.Printf("shutdown hook %d timed out", i)
		}
		hCancel()
	}
}

// RunServerWithShutdown serves until SIGINT or SIGTERM, runs the hooks in
// order and then shuts the server down within cfg.Shutdown.
func RunServerWithShutdown(server *http.Server, name string, cfg TimeoutConfig, hooks ...ShutdownHook) {
	go func() {
		log.Printf("starting %s on %s", name, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("%s listen error: %v", name, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Printf("shutdown signal received for %s", name)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
	defer cancel()

	runHooks(ctx, cfg.Hook, hooks)

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	} else {
		log.Printf("%s shutdown complete", name)
	}
}
