// Command purse-blobd serves a purse Store backend over gRPC so that remote
// engines can keep purses and contracts in one place.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/purse/config"
	"xdao.co/purse/internal/logging"
	"xdao.co/purse/storage"
	"xdao.co/purse/storage/grpcstore"
	"xdao.co/purse/storage/registry"

	_ "xdao.co/purse/storage/leveldb"
	_ "xdao.co/purse/storage/localfs"
)

func main() {
	fs := flag.NewFlagSet("purse-blobd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	backend := fs.String("backend", "localfs", "Store backend name")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	configPath := fs.String("config", "", "Engine config file (its storage section overrides -backend)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	devLog := fs.Bool("log-development", false, "Human-readable development logging")

	registry.RegisterFlags(fs, registry.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *devLog {
		cfg.LogDevelopment = true
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	var (
		store   storage.Store
		closeFn func() error
	)
	if cfg.Storage != nil {
		store, closeFn, err = cfg.Storage.Open(registry.UsageDaemon, "")
	} else {
		store, closeFn, err = registry.Open(*backend, registry.UsageDaemon)
	}
	if err != nil {
		log.Error("open backend", zap.String("backend", *backend), zap.Error(err))
		os.Exit(2)
	}
	if closeFn != nil {
		defer func() {
			if err := closeFn(); err != nil {
				log.Warn("close backend", zap.Error(err))
			}
		}()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Error("listen", zap.String("addr", *listen), zap.Error(err))
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer(grpc.UnaryInterceptor(grpcstore.LoggingInterceptor(log)))
	grpcstore.RegisterStoreServer(s, &grpcstore.Server{Store: store})

	log.Info("purse-blobd listening", zap.String("addr", lis.Addr().String()), zap.String("backend", *backend))
	if err := s.Serve(lis); err != nil {
		log.Error("serve", zap.Error(err))
		os.Exit(1)
	}
}
