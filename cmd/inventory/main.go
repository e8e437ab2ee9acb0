package main

import (
	"context"
	"log"
	"net/http"
	"slices"
	"sync/atomic"

	"github.com/matst80/slask-fordon/pkg/common"
	"github.com/matst80/slask-fordon/pkg/config"
	"github.com/matst80/slask-fordon/pkg/messaging"
	"github.com/matst80/slask-fordon/pkg/repository"
	"github.com/matst80/slask-fordon/pkg/server"
	"github.com/matst80/slask-fordon/pkg/storage"
	"github.com/matst80/slask-fordon/pkg/tracking"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/pflag"
)

var (
	configPath = pflag.StringP("config", "c", "config.json", "path to the service config (json with comments)")
	importPath = pflag.String("import", "", "json array or csv file of inventory items to load on start")
	saveOnExit = pflag.Bool("save-on-exit", true, "write the in memory inventory snapshot on shutdown")
)

type app struct {
	cfg     config.Config
	storage *storage.DiskStorage
	memory  *repository.Memory
	writer  repository.Writer
	repo    repository.Repository
	conn    *amqp.Connection
	feed    *messaging.InventoryFeed
	tracker *tracking.RabbitTracking
	ready   atomic.Bool
}

func (a *app) openRepository() {
	if a.cfg.DatabaseUrl != "" {
		pg, err := repository.NewPostgres(a.cfg.DatabaseUrl)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		if err = pg.Migrate(); err != nil {
			log.Fatalf("Failed to migrate inventory table: %v", err)
		}
		a.writer = pg
		a.repo = pg
		log.Println("Using postgres content repository")
		return
	}
	a.memory = repository.NewMemory()
	a.writer = a.memory
	a.repo = a.memory
	count, err := a.storage.LoadItems(a.memory, a.cfg.BatchSize)
	if err != nil {
		log.Printf("Could not load inventory snapshot: %v", err)
	}
	log.Printf("Using in memory content repository with %d items", count)
}

func (a *app) withCache() {
	if a.cfg.RedisUrl == "" {
		return
	}
	cache := repository.NewRedisCache(a.cfg.RedisUrl, a.cfg.RedisPassword, a.cfg.RedisDb)
	a.repo = repository.NewCached(a.repo, cache, a.cfg.CacheTTL.Std())
	log.Printf("Caching queries in redis at %s", a.cfg.RedisUrl)
}

func (a *app) connectAmqp() {
	if a.cfg.RabbitUrl == "" {
		return
	}
	conn, err := amqp.DialConfig(a.cfg.RabbitUrl, amqp.Config{
		Properties: amqp.NewConnectionProperties(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	a.conn = conn
	a.feed = messaging.NewInventoryFeed(a.writer, a.cfg.BatchSize)
	if err = a.feed.Connect(conn, a.cfg.RabbitPrefix); err != nil {
		log.Fatalf("Failed to listen for inventory changes: %v", err)
	}
	log.Printf("Listening for inventory changes on %s", a.cfg.RabbitPrefix)

	a.tracker, err = tracking.NewRabbitTracking(a.cfg.RabbitUrl, a.cfg.Country)
	if err != nil {
		log.Printf("Failed to connect to rabbitmq for tracking: %v", err)
		a.tracker = nil
	}
}

// importItems publishes the items when a broker is configured so every
// replica picks them up, otherwise they go straight into the repository.
func (a *app) importItems(path string) {
	items, err := readItems(path)
	if err != nil {
		log.Printf("Could not read items from %s: %v", path, err)
		return
	}
	if a.conn != nil {
		publisher := &messaging.Publisher{Conn: a.conn, Prefix: a.cfg.RabbitPrefix}
		if err = publisher.Define(); err == nil {
			err = publisher.Upserted(items)
		}
		if err != nil {
			log.Printf("Failed to publish %d imported items: %v", len(items), err)
			return
		}
		log.Printf("Published %d imported items", len(items))
		return
	}
	a.writer.Upsert(items...)
	log.Printf("Imported %d items", len(items))
}

func (a *app) shutdownHooks() []common.ShutdownHook {
	hooks := make([]common.ShutdownHook, 0, 3)
	if a.feed != nil {
		hooks = append(hooks, func(ctx context.Context) error {
			a.feed.Close()
			return nil
		})
	}
	if a.memory != nil && *saveOnExit {
		hooks = append(hooks, func(ctx context.Context) error {
			log.Println("Saving inventory snapshot...")
			return a.storage.SaveItems(slices.Values(a.memory.Items()))
		})
	}
	hooks = append(hooks, func(ctx context.Context) error {
		if a.tracker != nil {
			_ = a.tracker.Close()
		}
		if a.conn != nil {
			return a.conn.Close()
		}
		return nil
	})
	return hooks
}

func main() {
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	a := &app{
		cfg:     cfg,
		storage: storage.NewDiskStorage(cfg.Country, cfg.DataDir),
	}
	a.openRepository()
	a.connectAmqp()
	if *importPath != "" {
		a.importItems(*importPath)
	}
	a.withCache()
	a.ready.Store(true)

	opts := server.DefaultOptions()
	opts.QueryTimeout = cfg.QueryTimeout.Std()
	opts.FacetConcurrency = cfg.FacetConcurrency
	opts.Dimensions = a.storage.LoadDimensions()

	// Both domains live in the same content repository.
	ws := server.NewWebServer(a.repo, a.repo, opts)
	ws.Ready = a.ready.Load
	if a.tracker != nil {
		ws.Tracking = a.tracker
	}

	if cfg.DebugAddress != "" {
		debug := http.NewServeMux()
		debug.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("debug listener on %s", cfg.DebugAddress)
			if err := http.ListenAndServe(cfg.DebugAddress, debug); err != nil {
				log.Printf("debug listener stopped: %v", err)
			}
		}()
	}

	timeouts := common.LoadTimeoutConfig(common.DefaultTimeouts)
	srv := common.NewServerWithTimeouts(cfg.ListenAddress, ws.Handler(), timeouts)
	common.RunServerWithShutdown(srv, "inventory api", timeouts, a.shutdownHooks()...)
}
