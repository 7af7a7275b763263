package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"daybot/internal/broker"
	"daybot/internal/calendar"
	"daybot/internal/config"
	"daybot/internal/engine"
	"daybot/internal/event"
	"daybot/internal/executor"
	"daybot/internal/ledger"
	"daybot/internal/schedule"
	"daybot/internal/state"
	"daybot/internal/summary"
	"daybot/internal/telemetry"
)

func main() {
	var cfgPath string
	var validateOnly bool
	flag.StringVar(&cfgPath, "config", "config.yaml", "path to config file")
	flag.BoolVar(&validateOnly, "validate", false, "validate configuration and exit without placing orders")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}
	setupLogger(cfg.Logging.Level)

	cal, err := calendar.New(cfg.Location(), cfg.Holidays)
	if err != nil {
		log.Fatalf("calendar: %v", err)
	}

	if validateOnly {
		// Wire everything against the simulator so construction errors
		// surface, then stop before any order could exist.
		sim := broker.NewSimulator()
		buildEngine(cfg, cal, sim, event.NewBus(), summary.Noop{})
		fmt.Println("configuration OK")
		return
	}

	if err := cfg.ValidateCredentials(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	bus := event.NewBus()
	bus.Subscribe(event.SlogSink{})
	journal, err := event.NewJournal(cfg.Journal)
	if err != nil {
		log.Fatalf("journal error: %v", err)
	}
	bus.Subscribe(journal)
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		bus.Subscribe(event.NewTelegramSink(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	if cfg.Telemetry.Addr != "" {
		hub := telemetry.NewHub()
		bus.Subscribe(hub)
		go hub.Serve(cfg.Telemetry.Addr)
	}

	recorder, closeRecorder, err := buildRecorder(cfg)
	if err != nil {
		log.Fatalf("summary recorder error: %v", err)
	}
	defer closeRecorder()

	gw := broker.NewAlpaca(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
	eng := buildEngine(cfg, cal, gw, bus, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		slog.Info("shutdown signal received")
		cancel()
	}()

	now := time.Now()
	if err := eng.Restore(now); err != nil {
		slog.Error("checkpoint restore failed", "error", err)
	}
	bus.Publish(event.Event{
		Type: event.TypeBotStarted,
		Fields: map[string]any{
			"mode":   string(cfg.Mode),
			"symbol": cfg.Symbols.Reference,
		},
	})

	// Catch-up tick: a start after a trigger instant runs the missed
	// transition right away.
	if err := eng.Tick(ctx, now); err != nil {
		slog.Error("startup tick failed", "error", err)
	}

	sched := schedule.New(cfg.Location())
	if err := sched.Register(cfg.TriggerTimes(), func(now time.Time) {
		if err := eng.Tick(ctx, now); err != nil {
			slog.Error("tick failed", "error", err)
		}
	}); err != nil {
		log.Fatalf("scheduler error: %v", err)
	}
	sched.Start()

	<-ctx.Done()
	sched.Stop()
	bus.Close()
	slog.Info("bot shutdown complete")
}

func buildEngine(cfg *config.Config, cal *calendar.Calendar, gw broker.Gateway, bus *event.Bus, recorder summary.Recorder) *engine.Engine {
	return engine.New(engine.Options{
		Calendar: cal,
		Triggers: cfg.TriggerTimes(),
		Gateway:  gw,
		Executor: executor.New(gw, executor.DefaultPolicy()),
		Ledger:   ledger.New(gw),
		Bus:      bus,
		Recorder: recorder,
		Store:    state.NewStore(cfg.Checkpoint),

		ReferenceSymbol: cfg.Symbols.Reference,
		LongSymbol:      cfg.Symbols.Long,
		ShortSymbol:     cfg.Symbols.Short,
		Quantity:        cfg.Quantity,
		KillSwitch:      cfg.KillSwitch,
	})
}

func buildRecorder(cfg *config.Config) (summary.Recorder, func(), error) {
	switch cfg.Summary.Backend {
	case "json":
		r, err := summary.NewJSONRecorder(cfg.Summary.Path)
		return r, func() {}, err
	case "sqlite":
		r, err := summary.NewSQLiteRecorder(cfg.Summary.Path)
		if err != nil {
			return nil, nil, err
		}
		return r, func() {
			if err := r.Close(); err != nil {
				slog.Error("close summary recorder failed", "error", err)
			}
		}, nil
	default:
		return summary.Noop{}, func() {}, nil
	}
}

func setupLogger(level string) {
	var slevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slevel = slog.LevelDebug
	case "warn":
		slevel = slog.LevelWarn
	case "error":
		slevel = slog.LevelError
	default:
		slevel = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slevel})
	slog.SetDefault(slog.New(handler))
}
