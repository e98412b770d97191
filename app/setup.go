package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SirCraft007/grade-api/config"
	"github.com/SirCraft007/grade-api/database"
	"github.com/SirCraft007/grade-api/services"
	"github.com/SirCraft007/grade-api/services/aggregation"
	"github.com/SirCraft007/grade-api/services/cron"
	"github.com/SirCraft007/grade-api/utils"
	"github.com/SirCraft007/grade-api/utils/cache"
)

// App holds the wired gradebook components shared by the worker and the commands
type App struct {
	Env    *config.EnviornmentVariable
	Store  database.Storage
	Cache  *cache.RedisCache
	Logger *utils.Logger

	Pipeline   *aggregation.Pipeline
	Users      *services.UserService
	Subjects   *services.SubjectService
	Grades     *services.GradeService
	Imports    *services.ImportService
	Reports    *services.ReportService
	Reconciler *services.ReconcileService
}

// Bootstrap loads the environment, connects to Postgres (and Redis when configured),
// migrates the schema and wires the services
func Bootstrap() (*App, error) {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		// A missing .env is fine when the variables come from the environment
		fmt.Fprintln(os.Stderr, "Warning: .env file not loaded:", err)
	}

	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewLogger(getEnv.GO_ENV)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	policy, err := aggregation.LoadWeightPolicy(getEnv.WEIGHT_POLICY_FILE)
	if err != nil {
		return nil, err
	}
	scheme, err := aggregation.ParseScheme(
		getEnv.AGGREGATION_EXAM_COUNT,
		getEnv.AGGREGATION_POINTS,
		getEnv.AGGREGATION_DENOMINATOR,
	)
	if err != nil {
		return nil, err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return nil, err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		store.Close()
		return nil, err
	}

	a := &App{Env: getEnv, Store: store, Logger: logger}

	var locker aggregation.Locker = aggregation.NewLocalLocker()
	if getEnv.REDIS_URL != "" {
		redisCache, err := cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.Cache = redisCache
		locker = cache.NewRedisLocker(redisCache, time.Duration(getEnv.LOCK_TTL)*time.Second)
		logger.Info("using redis user locks", "ttl_seconds", getEnv.LOCK_TTL)
	}

	db := store.GetDB()
	a.Pipeline = aggregation.NewPipeline(database.NewGradebookRepository(db), aggregation.Options{
		Policy: policy,
		Scheme: scheme,
		Locker: locker,
		Logger: logger,
	})
	a.Users = services.NewUserService(db, a.Pipeline)
	a.Subjects = services.NewSubjectService(db, a.Pipeline)
	a.Grades = services.NewGradeService(db, a.Pipeline)
	a.Imports = services.NewImportService(a.Pipeline, logger)
	a.Reports = services.NewReportService(db, a.Users)
	a.Reconciler = services.NewReconcileService(db, a.Pipeline, getEnv.RECONCILE_CONCURRENCY, logger)

	return a, nil
}

// Close releases the connections held by the app
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("failed to close redis", "error", err)
		}
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("failed to close database", "error", err)
	}
	a.Logger.Sync()
}

// SetupAndRunWorker runs the reconciliation worker until SIGINT or SIGTERM
func SetupAndRunWorker() error {
	a, err := Bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bring every stored summary in line before serving the schedule
	if _, err := a.Reconciler.RecomputeAll(ctx); err != nil {
		a.Logger.Warn("startup reconcile failed", "error", err)
	}

	if !a.Env.CRON_ENABLED {
		a.Logger.Info("cron disabled, exiting after startup reconcile")
		return nil
	}

	cronManager := cron.NewCronManager(a.Store.GetDB(), a.Reconciler, a.Env.RECONCILE_SCHEDULE, a.Logger)
	if err := cronManager.Start(); err != nil {
		return err
	}
	defer cronManager.Stop()

	<-ctx.Done()
	a.Logger.Info("shutdown signal received")
	return nil
}
