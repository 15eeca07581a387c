package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/dispatch"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/factory"
	"github.com/iov-one/quorum/store"
	"github.com/iov-one/quorum/store/sqlite"
	"github.com/iov-one/quorum/x/sigs"
	"github.com/iov-one/quorum/x/utils"
	"github.com/tendermint/tendermint/libs/log"
	"golang.org/x/sync/errgroup"
)

type configuration struct {
	HTTP     string
	DB       string
	Genesis  string
	LogLevel string
	Webhook  string
	Workers  int
}

func main() {
	workers, err := strconv.Atoi(env("QUORUM_WORKERS", "4"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid QUORUM_WORKERS: %s\n", err)
		os.Exit(2)
	}
	conf := configuration{
		HTTP:     env("QUORUM_HTTP", ":8000"),
		DB:       env("QUORUM_DB", ""),
		Genesis:  env("QUORUM_GENESIS", ""),
		LogLevel: env("QUORUM_LOG_LEVEL", "info"),
		Webhook:  env("QUORUM_WEBHOOK", ""),
		Workers:  workers,
	}

	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, conf, logger); err != nil {
		logger.Error("Exiting", "err", err)
		os.Exit(1)
	}
}

func env(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

func newLogger(level string) (log.Logger, error) {
	var opt log.Option
	switch level {
	case "debug":
		opt = log.AllowDebug()
	case "info":
		opt = log.AllowInfo()
	case "error":
		opt = log.AllowError()
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout))
	return log.NewFilter(logger, opt).With("module", "quorumd"), nil
}

// openStore returns the sqlite store at path, or a memory store when
// path is empty.
func openStore(path string) (quorum.CacheableKVStore, func() error, error) {
	if path == "" {
		return store.MemStore(), func() error { return nil }, nil
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

// loadGenesis creates the wallets listed in the genesis file at path.
func loadGenesis(ctx quorum.Context, path string, db quorum.CacheableKVStore) error {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read genesis")
	}
	var opts quorum.Options
	if err := json.Unmarshal(raw, &opts); err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot parse genesis: %s", err)
	}
	return utils.Savepoint(db, func(db quorum.CacheableKVStore) error {
		var ini factory.Initializer
		return ini.FromGenesis(ctx, opts, db)
	})
}

func run(ctx context.Context, conf configuration, logger log.Logger) error {
	base, closeDB, err := openStore(conf.DB)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() {
		if err := closeDB(); err != nil {
			logger.Error("Cannot close store", "err", err)
		}
	}()
	db := store.NewSyncStore(base)

	if conf.Genesis != "" {
		if err := loadGenesis(quorum.WithLogger(ctx, logger), conf.Genesis, db); err != nil {
			return err
		}
	}

	var exec dispatch.Executor = dispatch.LogExecutor{Logger: logger.With("module", "effects")}
	if conf.Webhook != "" {
		exec = &dispatch.WebhookExecutor{
			URL:    conf.Webhook,
			Client: &http.Client{Timeout: 10 * time.Second},
		}
	}
	queue := dispatch.NewQueue(exec, logger)

	fac, err := factory.New(db, sigs.Authenticate{}, queue, factory.DefaultCacheSize)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              conf.HTTP,
		Handler:           newRouter(db, fac, logger, conf.LogLevel == "debug"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return queue.Run(ctx, conf.Workers)
	})
	g.Go(func() error {
		logger.Info("Listening", "addr", conf.HTTP)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if n := queue.Len(); n > 0 {
		logger.Error("Undelivered effects dropped", "count", n)
	}
	return nil
}
