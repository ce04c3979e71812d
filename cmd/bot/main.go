package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sentinel-signals/internal/analyzer"
	"sentinel-signals/internal/cache"
	"sentinel-signals/internal/collector"
	"sentinel-signals/internal/config"
	"sentinel-signals/internal/logger"
	"sentinel-signals/internal/notifier"
	"sentinel-signals/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("c", "configs/config.yaml", "config file path")
	symbol := flag.String("s", "", "symbols to analyze, comma separated (overrides config)")
	timeframe := flag.String("t", "", "timeframes to analyze, comma separated (overrides config)")
	debug := flag.Bool("d", false, "enable debug logging")
	once := flag.Bool("once", false, "run a single analysis cycle and exit")
	flag.Parse()

	if v := os.Getenv("CONFIG_PATH"); v != "" && !isFlagSet("c") {
		*cfgPath = v
	}

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if *symbol != "" {
		cfg.Symbols = splitList(*symbol)
	}
	if *timeframe != "" {
		cfg.Timeframes = splitList(*timeframe)
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		return 1
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	log.Info("sentinel-signals starting")

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Type {
	case config.SourceMock:
		fetcher = &collector.MockFetcher{Price: 50000, Drift: 0.001, Funding: 0.0001, OI: 100000}
	default:
		fetcher = collector.NewBinanceFetcher(cfg.DataSource.BaseURL, cfg.DataSource.SpotBaseURL, cfg.Proxy)
	}
	log.WithField("source", fetcher.Name()).Info("data source ready")

	// Init bar cache
	var barCache cache.Cache = cache.NewNoopCache()
	if cfg.Database.SQLitePath != "" {
		sc, err := cache.NewSQLiteCache(cfg.Database.SQLitePath, log)
		if err != nil {
			log.WithError(err).Warn("init sqlite cache failed, using noop")
		} else {
			sc.MaxBars = cfg.DataSource.Limit
			barCache = sc
		}
	}
	defer barCache.Close()

	col := collector.NewCollector(fetcher, barCache, cfg.DataSource.Limit, log)
	an := analyzer.New(cfg.IndicatorParams(), cfg.Analysis.Levels.Count, log)

	// Init notifiers
	var notifiers notifier.Multi
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.Enabled {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		notifiers = append(notifiers, tn)
	}
	if cfg.Notify.Console || *once {
		notifiers = append(notifiers, notifier.NewConsoleNotifier())
	}
	if cfg.Notify.File != "" {
		notifiers = append(notifiers, notifier.NewFileNotifier(cfg.Notify.File))
	}
	if cfg.Notify.NATSURL != "" {
		nn, err := notifier.NewNATSNotifier(cfg.Notify.NATSURL, cfg.Notify.NATSSubject, log)
		if err != nil {
			log.WithError(err).Warn("init nats notifier failed, skipping")
		} else {
			notifiers = append(notifiers, nn)
			defer nn.Close()
		}
	}
	names := make([]string, len(notifiers))
	for i, n := range notifiers {
		names[i] = n.Name()
	}
	log.WithField("channels", strings.Join(names, ",")).Info("notifiers ready")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(col, an, notifiers, cfg.StrategyParams(),
		cfg.Symbols, cfg.Timeframes, cfg.Schedule.Concurrency, log)

	if *once {
		if res := sched.RunCycle(ctx); res.Failed > 0 {
			log.WithField("failed", res.Failed).Warn("analysis cycle finished with failures")
			return 1
		}
		return 0
	}

	if err := sched.Register(ctx, cfg.Schedule.AnalysisCron); err != nil {
		log.WithError(err).Error("register cron task")
		return 1
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, executing analysis cycle now")
		go sched.RunCycle(ctx)
	}

	log.WithField("cron", cfg.Schedule.AnalysisCron).Info("sentinel-signals is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info("shutdown signal received, stopping")
	return 0
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
