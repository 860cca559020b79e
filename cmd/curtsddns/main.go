package main

import (
	"context"
	"fmt"
	"os"

	"curtsddns/config"
	"curtsddns/curtsddns"
	"curtsddns/ddns"
	"curtsddns/log"

	"github.com/judwhite/go-svc"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	configPath = flag.StringP("config", "c", "config.ini", "path to config file (ini, toml, yaml or json)")
	debug      = flag.Bool("debug", false, "enable debug output")
	once       = flag.Bool("once", false, "run a single reconcile cycle and exit")
	version    = flag.Bool("version", false, "print version and exit")
	help       = flag.BoolP("help", "h", false, "Print help message")
)

var buildDate string

func init() {
	flag.Parse()
	if *help {
		fmt.Println(flag.CommandLine.FlagUsages())
		os.Exit(0)
	}

	if *version {
		if buildDate == "" {
			buildDate = "dev"
		}
		fmt.Println("curtsddns", buildDate)
		os.Exit(0)
	}
}

func getInitLogger() context.Context {
	var err error
	var logger *zap.Logger

	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		fmt.Printf("Failed creating logger: %v\n", err)
		os.Exit(1)
	}

	return log.WithLogger(context.Background(), logger)
}

func getLogger(ctx context.Context, conf *config.Config) context.Context {
	logger, err := log.Build(conf.Logging, conf.Settings.Name, *debug)
	if err != nil {
		log.S(ctx).Errorw("cannot build real logger, keep using the bootstrap one", zap.Error(err))
		return ctx
	}

	return log.Named(log.WithLogger(context.Background(), logger), "curtsddns")
}

// setup loads the configuration and wires resolver, provider and reconciler. Any error is a
// startup failure.
func setup(ctx context.Context) (context.Context, *curtsddns.Reconciler, error) {
	conf, err := config.Load(*configPath)
	if err != nil {
		log.S(ctx).Errorw("failed loading config", "path", *configPath, zap.Error(err))
		return ctx, nil, err
	}

	ctx = getLogger(ctx, conf)

	for _, key := range conf.Unused {
		log.S(ctx).Warnw("ignoring unknown config key", "key", key)
	}

	resolver, err := curtsddns.NewResolver(ctx, conf.Resolver)
	if err != nil {
		log.S(ctx).Errorw("cannot init resolver", zap.Error(err))
		return ctx, nil, err
	}

	provider, err := ddns.New(ctx, conf)
	if err != nil {
		log.S(ctx).Errorw("cannot init provider", zap.Error(err))
		return ctx, nil, err
	}

	return ctx, curtsddns.NewReconciler(resolver, provider, conf.Interval()), nil
}

func main() {
	ctx := getInitLogger()

	if buildDate != "" {
		log.S(ctx).Infow("curtsddns starting", "variant", "release", "build_date", buildDate)
	} else {
		log.S(ctx).Infow("curtsddns starting", "variant", "debug")
	}

	if *once {
		os.Exit(runOnce(ctx))
	}

	if err := svc.Run(&program{initCtx: ctx}); err != nil {
		log.S(ctx).Fatalw("curtsddns stopped with error", zap.Error(err))
	}
}

func runOnce(ctx context.Context) int {
	ctx, reconciler, err := setup(ctx)
	if err != nil {
		return 1
	}
	defer func() {
		_ = log.L(ctx).Sync()
	}()

	reconciler.Inspect(ctx)
	outcome := reconciler.RunOnce(ctx)
	log.S(ctx).Infow("single cycle finished", "outcome", outcome)

	if !outcome.Succeeded() {
		return 1
	}
	return 0
}
