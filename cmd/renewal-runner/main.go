// cmd/renewal-runner/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"renewal-bot/internal/audit"
	"renewal-bot/internal/batch"
	"renewal-bot/internal/browser"
	commonaws "renewal-bot/internal/common/aws"
	"renewal-bot/internal/common/config"
	"renewal-bot/internal/common/database"
	"renewal-bot/internal/common/logger"
	"renewal-bot/internal/common/observability"
	"renewal-bot/internal/exclusion"
	"renewal-bot/internal/notify"
	"renewal-bot/internal/profile"
	"renewal-bot/internal/resolver"
	"renewal-bot/internal/source"
	"renewal-bot/internal/step"
	"renewal-bot/internal/workflow"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	profileName := flag.String("profile", "", "operator profile to run (default: last used)")
	listPath := flag.String("list", "", "override the client list file")
	dryRun := flag.Bool("dry-run", false, "resolve and read pages but suppress all mutating actions")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.Workflow.DryRun = true
	}
	if *listPath != "" {
		cfg.Source.ListPath = *listPath
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting renewal runner...",
		zap.String("environment", cfg.App.Environment),
		zap.Bool("dry_run", cfg.Workflow.DryRun),
	)

	obs := observability.New("renewal-runner")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Operator profile (carrier selection, list path) ---
	approved := cfg.Carriers.Approved
	if store, perr := profile.Load("bot_profiles.json"); perr == nil {
		name, active := store.Active()
		if *profileName != "" {
			if serr := store.Select(*profileName, cfg.Source.ListPath); serr != nil {
				zapLog.Fatal("unknown profile", zap.String("profile", *profileName))
			}
			name, active = store.Active()
		}
		if len(active.Carriers) > 0 {
			approved = active.Carriers
		}
		if cfg.Source.ListPath == "" && active.LastFilePath != "" {
			cfg.Source.ListPath = active.LastFilePath
		}
		zapLog.Info("profile selected",
			zap.String("profile", name),
			zap.Strings("carriers", approved),
		)
		defer func() {
			if serr := store.Save(); serr != nil {
				zapLog.Warn("profile save failed", zap.Error(serr))
			}
		}()
	} else if !errors.Is(perr, os.ErrNotExist) {
		zapLog.Fatal("profile store unreadable", zap.Error(perr))
	}

	// --- Attach to the running Chrome session with retry ---
	var chrome *browser.Chrome
	err = retryWithBackoff(func() error {
		var err error
		chrome, err = browser.Attach(ctx, cfg.Browser.DebuggerURL, log)
		return err
	}, 10, 2*time.Second, zapLog, "Chrome attach")
	if err != nil {
		zapLog.Fatal("chrome attach failed after retries", zap.Error(err))
	}
	defer chrome.Close()

	if cfg.Browser.ClientListURL != "" {
		if err := chrome.Navigate(ctx, cfg.Browser.ClientListURL); err != nil {
			zapLog.Fatal("navigate to client list failed", zap.Error(err))
		}
	}

	// --- Audit sinks ---
	sinks := make([]audit.Sink, 0, 2)
	fileSink, err := audit.NewFileSink(cfg.Audit.FilePath)
	if err != nil {
		zapLog.Fatal("audit file sink failed", zap.Error(err))
	}
	sinks = append(sinks, fileSink)

	if cfg.Database.Postgres.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		sinks = append(sinks, audit.NewPostgresSink(pg.DB))
		zapLog.Info("PostgreSQL connected successfully")
	}
	sink := audit.NewMultiSink(log, sinks...)
	defer sink.Close()

	shots, err := audit.NewScreenshotStore(cfg.Audit.ScreenshotDir)
	if err != nil {
		zapLog.Fatal("screenshot dir failed", zap.Error(err))
	}

	// --- Permanent exclusion set ---
	var exclusions exclusion.Set = exclusion.NewMemorySet()
	if cfg.Database.Redis.Enabled {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		exclusions = exclusion.NewRedisSet(redisClient.GetClient(), "")
		zapLog.Info("Redis connected successfully")
	}

	// --- Notifications ---
	var mailer notify.Mailer
	var alerter notify.Alerter
	if cfg.Notifications.AWS.SES.Enabled {
		sesClient, err := commonaws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		mailer = sesClient
	}
	if cfg.Notifications.AWS.SNS.Enabled {
		snsClient, err := commonaws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		alerter = snsClient
	}
	notifier := notify.New(cfg.Notifications, mailer, alerter, log)

	// --- Metrics endpoint ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("metrics server stopped", zap.Error(err))
		}
	}()

	// --- Engine assembly ---
	res := resolver.New(chrome, log, cfg.Workflow.DescriptorTimeoutDuration())
	exec := step.NewExecutor(chrome, res, log, step.Options{
		MaxAttempts: cfg.Workflow.StepRetries,
		Timeout:     cfg.Workflow.StepTimeoutDuration(),
		PostTimeout: cfg.Workflow.PostTimeoutDuration(),
		DryRun:      cfg.Workflow.DryRun,
	})
	machine := workflow.NewMachine(chrome, exec, res, log, workflow.Params{
		ApprovedCarriers: approved,
		IncomeMin:        cfg.Workflow.IncomeMin,
		IncomeMax:        cfg.Workflow.IncomeMax,
		IncomeRetries:    cfg.Workflow.IncomeEditRetries,
		SignatureTimeout: cfg.Workflow.SignatureTimeoutDuration(),
	})

	var src source.Provider
	if cfg.Source.ListPath != "" {
		src, err = source.NewFileSource(cfg.Source.ListPath, cfg.Source.ProcessedPath, cfg.Source.MaxRows, log)
		if err != nil {
			zapLog.Fatal("file source failed", zap.Error(err))
		}
	} else {
		src = source.NewTableSource(chrome, log, cfg.Source.MaxRows)
	}

	coordinator := batch.NewCoordinator(batch.Options{
		Source:      src,
		Runner:      machine,
		Exclusions:  exclusions,
		Sink:        sink,
		Driver:      chrome,
		Screenshots: shots,
		Obs:         obs,
		Logger:      log,
	})

	summary, err := coordinator.Run(ctx)
	if err != nil {
		notifier.DriverLost(context.Background(), err.Error())
		zapLog.Fatal("batch aborted", zap.Error(err))
	}

	fmt.Print(summary.Text())
	notifier.BatchFinished(context.Background(), summary)
	zapLog.Info("Renewal runner finished")
}
