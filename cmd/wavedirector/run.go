package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cluckworks/wavedirector/internal/api"
	"github.com/cluckworks/wavedirector/internal/config"
	"github.com/cluckworks/wavedirector/internal/content"
	"github.com/cluckworks/wavedirector/internal/database"
	"github.com/cluckworks/wavedirector/internal/dispatcher"
	"github.com/cluckworks/wavedirector/internal/economy"
	"github.com/cluckworks/wavedirector/internal/generator"
	"github.com/cluckworks/wavedirector/internal/logging"
	"github.com/cluckworks/wavedirector/internal/monitor"
	"github.com/cluckworks/wavedirector/internal/orchestrator"
	"github.com/cluckworks/wavedirector/internal/progress"
	"github.com/cluckworks/wavedirector/internal/random"
	"github.com/cluckworks/wavedirector/internal/scheduler"
	"github.com/cluckworks/wavedirector/internal/session"
	"github.com/cluckworks/wavedirector/internal/spawn"
	"github.com/cluckworks/wavedirector/internal/stream"
	"github.com/cluckworks/wavedirector/internal/telemetry"
	"github.com/cluckworks/wavedirector/pkg/core"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

func runDirector() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	waveCfg := config.GetWaveConfig()
	mode := core.ParseWaveMode(waveCfg.Mode)

	sess := session.NewContext(viper.GetString("profileId"), mode)
	SlogManager.SetContextProvider(sess.Attrs)
	applyLogging()
	Logger.Info("Starting wave director", "version", CurrentVersion, "session", sess.ID(), "mode", mode)

	cnt, err := content.Load(viper.GetString("contentPath"), SlogManager.Component("content"))
	if err != nil {
		return err
	}

	events, err := newDispatcher()
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	defer events.Close()
	sess.Follow(events)

	db, err := openDatabase()
	if err != nil {
		// caches fall back to a store that never hits, progress to memory
		Logger.Error("Database unavailable", "error", err)
		db = nil
	}
	if db != nil {
		defer db.Close()
	}

	store := openCacheStore(db)
	defer store.Close()

	progressSvc, err := openProgress(db)
	if err != nil {
		return err
	}
	progressSvc.SetMode(mode)

	rng := random.New(viper.GetInt64("seed"))
	ledger := economy.NewLedger(cnt.Rewards, rng, func(total int) {
		_ = events.Emit(core.EventCoinsChanged, core.CoinsChanged{Total: total})
	}, SlogManager.Component("economy"))
	defer ledger.Close()
	bindBalance(ctx, ledger, progressSvc)

	registry := spawn.NewRegistry(cnt.Bindings, rng, SlogManager.Component("spawn"))
	gen := generator.New(generator.Dependencies{
		Registry: registry,
		Rewards:  ledger,
		RNG:      rng,
		Store:    store,
		Logger:   SlogManager.Component("generator"),
	})

	tel := startTelemetry(ctx, events, sess)
	if tel != nil {
		defer tel.Close()
	}

	streamer := startStream(events, sess)
	if streamer != nil {
		defer func() {
			if err := streamer.EndSession(); err != nil {
				Logger.Warn("Failed to end stream session", "error", err)
			}
			_ = streamer.Close()
		}()
	}

	health := newSimHealth(100)
	spawner := newSimSpawner(rng, health, SlogManager.Component("sim"))
	defer spawner.Stop()
	victory := &simVictory{delay: 3 * time.Second, logger: SlogManager.Component("sim")}

	sched := scheduler.New(SlogManager.Component("scheduler"))
	settings := orchestrator.DefaultSettings()
	settings.Mode = mode
	settings.Campaign = cnt.Campaign
	settings.Endless = cnt.Endless
	settings.StartIndex = waveCfg.StartIndex
	settings.InterWaveCooldown = waveCfg.InterWaveCooldown
	settings.CooldownHealAmount = waveCfg.CooldownHeal
	settings.VictorySlowDuration = waveCfg.VictorySlow
	settings.VictoryResumeDuration = waveCfg.VictoryResume

	orch, err := orchestrator.New(orchestrator.Dependencies{
		Generator: gen,
		Economy:   ledger,
		Spawner:   spawner,
		Health:    health,
		Progress:  progressSvc,
		Victory:   victory,
		Events:    events,
		Scheduler: sched,
		Logger:    SlogManager.Component("orchestrator"),
	}, settings)
	if err != nil {
		return err
	}
	victory.post = orch.Post
	victory.resume = orch.ContinueAfterVictory

	mon := monitor.NewService(monitor.Dependencies{
		Orchestrator:    orch,
		Coins:           ledger,
		Session:         sess,
		DB:              gormDB(db),
		IsDatabaseValid: func() bool { return db != nil && db.IsValid },
		Stream:          streamSender(streamer),
		StatusPath:      dataPath("status.json"),
		Logger:          SlogManager.Component("monitor"),
	})
	mon.Follow(events)

	if waveCfg.AutoStart {
		if err := orch.Start(); err != nil {
			return err
		}
	} else {
		Logger.Info("Auto start disabled, director is idle")
	}

	runner := scheduler.NewRunner(waveCfg.TickRate, orch.Tick)
	runner.Start()
	_ = mon.Start()

	<-ctx.Done()
	Logger.Info("Shutting down", "ticks", runner.Ticks(), "sessionCoins", ledger.SessionCoins())

	runner.Stop()
	// the tick goroutine is gone, so Close runs on its behalf
	orch.Close()
	mon.Stop()
	// drain buffered subscribers before the sinks behind them close
	events.Close()
	return nil
}

// bindBalance attaches the ledger to the configured balance source. Any
// failure leaves the ledger counting on its own.
func bindBalance(ctx context.Context, ledger *economy.Ledger, progressSvc *progress.Service) {
	economyCfg := config.GetEconomyConfig()
	logger := SlogManager.Component("economy")

	switch economyCfg.BalanceSource {
	case "none":
		logger.Info("No balance service, counting session coins locally")
	case "memory":
		svc, err := progress.NewService(progress.NewMemoryStore(), progressSvc.ProfileID(), economyCfg.StartingBalance, logger)
		if err != nil {
			logger.Error("Failed to create in-memory balance", "error", err)
			return
		}
		ledger.Bind(svc)
	case "api":
		apiCfg := config.GetAPIConfig()
		if apiCfg.Timeout <= 0 {
			apiCfg.Timeout = 10 * time.Second
		}
		client := api.New(apiCfg.ServerURL, apiCfg.APIKey, apiCfg.Timeout)
		connectCtx, cancel := context.WithTimeout(ctx, apiCfg.Timeout)
		defer cancel()

		remote, err := api.NewRemoteBalance(connectCtx, client, progressSvc.ProfileID(), logger)
		if err != nil {
			logger.Error("Progress server unavailable, using local balance", "error", err)
			ledger.Bind(progressSvc)
			return
		}
		logger.Info("Progress server is online", "url", apiCfg.ServerURL)
		ledger.Bind(remote)
	default:
		ledger.Bind(progressSvc)
	}
}

func startTelemetry(ctx context.Context, events *dispatcher.Dispatcher, sess *session.Context) *telemetry.Manager {
	tel := telemetry.NewManager(
		logging.NewZerolog(LogFile, viper.GetString("logLevel"), "telemetry"),
		config.GetInfluxConfig(),
		dataPath(fmt.Sprintf("%s_telemetry_%s.gz", AppName, SessionStartTime.Format("20060102_150405"))),
	)

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := tel.Connect(connectCtx); err != nil {
		if !errors.Is(err, telemetry.ErrDisabled) {
			Logger.Error("Failed to set up telemetry", "error", err)
		}
		return nil
	}
	tel.Follow(events, sess)
	return tel
}

func startStream(events *dispatcher.Dispatcher, sess *session.Context) *stream.Streamer {
	streamer := stream.New(config.GetStreamConfig(), SlogManager.Component("stream"))
	if err := streamer.Connect(); err != nil {
		if !errors.Is(err, stream.ErrDisabled) {
			Logger.Error("Failed to connect event stream", "error", err)
		}
		return nil
	}
	if err := streamer.StartSession(sess); err != nil {
		Logger.Warn("Event stream did not acknowledge session", "error", err)
	}
	streamer.Follow(events)
	return streamer
}

// streamSender avoids handing the monitor a typed nil.
func streamSender(s *stream.Streamer) monitor.Sender {
	if s == nil {
		return nil
	}
	return s
}

func gormDB(db *database.Manager) *gorm.DB {
	if db == nil {
		return nil
	}
	return db.DB
}

// newDispatcher records event metrics through the run's OTel provider when
// one is configured.
func newDispatcher() (*dispatcher.Dispatcher, error) {
	logger := logging.NewDispatcherLogger(SlogManager.Component("dispatcher"))
	if OTelProvider != nil {
		return dispatcher.NewWithMeter(logger, OTelProvider.Meter("github.com/cluckworks/wavedirector/internal/dispatcher"))
	}
	return dispatcher.New(logger)
}
