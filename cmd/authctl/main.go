// Command authctl runs operator tasks against the token registry.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/Skotchmaster/jam/internal/config"
	"github.com/Skotchmaster/jam/internal/db"
	"github.com/Skotchmaster/jam/internal/events"
	"github.com/Skotchmaster/jam/internal/logging"
	"github.com/Skotchmaster/jam/internal/repo"
	"github.com/Skotchmaster/jam/internal/service"
)

func main() {
	a := &app{out: os.Stdout, open: openService}
	if err := run(os.Args[1:], a); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}

func run(args []string, a *app) error {
	parser := flags.NewParser(newOptions(a), flags.Default)
	_, err := parser.ParseArgs(args)
	return err
}

// openService wires the registry the same way the server does, without a signer.
func openService(ctx context.Context) (*service.AuthService, func(), error) {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName, "cmd", "authctl")

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(initCtx, gdb); err != nil {
		_ = db.Close(gdb)
		return nil, nil, err
	}

	rp := repo.New(gdb)
	svc := &service.AuthService{Users: rp, Tokens: rp}

	var prod *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod, err = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			_ = db.Close(gdb)
			return nil, nil, err
		}
		svc.Events = prod
	}

	closeFn := func() {
		if prod != nil {
			if err := prod.Close(); err != nil {
				logger.Error("kafka_close_error", "error", err)
			}
		}
		if err := db.Close(gdb); err != nil {
			log.Printf("db close error: %v", err)
		}
	}
	return svc, closeFn, nil
}
