package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SirCraft007/grade-api/model"
	"github.com/SirCraft007/grade-api/services"
	"github.com/SirCraft007/grade-api/utils"
	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	jobReconcileSummaries = "reconcile_summaries"
	jobCleanupCronLogs    = "cleanup_cron_logs"

	// cronLogRetention is how long job logs are kept
	cronLogRetention = 90 * 24 * time.Hour
)

// Reconciler rebuilds every stored summary
type Reconciler interface {
	RecomputeAll(ctx context.Context) (*services.ReconcileResult, error)
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron       *cron.Cron
	db         *gorm.DB
	reconciler Reconciler
	schedule   string
	log        *utils.Logger
}

// NewCronManager creates a new cron manager. schedule is a six-field cron expression
// for the reconciliation sweep.
func NewCronManager(db *gorm.DB, reconciler Reconciler, schedule string, logger *utils.Logger) *CronManager {
	if logger == nil {
		logger = utils.NopLogger()
	}
	logger = logger.With("component", "cron")

	// Create cron with seconds precision; a sweep still running skips the next tick
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cronLogger{log: logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: logger})),
	)

	return &CronManager{
		cron:       c,
		db:         db,
		reconciler: reconciler,
		schedule:   schedule,
		log:        logger,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	m.log.Info("starting cron jobs")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	m.log.Info("cron jobs started", "entries", len(m.cron.Entries()))
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	m.log.Info("stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	if _, err := m.cron.AddFunc(m.schedule, m.ReconcileSummaries); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", m.schedule, err)
	}

	// Daily at 2 AM: drop old job logs
	if _, err := m.cron.AddFunc("0 0 2 * * *", m.CleanupCronLogs); err != nil {
		return err
	}

	return nil
}

// logJobStart records the start of a cron job and returns the log row id
func (m *CronManager) logJobStart(jobName string) uint {
	m.log.Info("job started", "job", jobName)

	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: time.Now(),
		Metadata:  datatypes.JSON("{}"),
	}
	if err := m.db.Create(&cronLog).Error; err != nil {
		m.log.Warn("failed to record job start", "job", jobName, "error", err)
		return 0
	}
	return cronLog.ID
}

// logJobComplete records successful completion of a cron job
func (m *CronManager) logJobComplete(logID uint, jobName, message string, metadata interface{}) {
	m.log.Info("job completed", "job", jobName, "message", message)
	m.finishJobLog(logID, map[string]interface{}{
		"status":   "completed",
		"message":  message,
		"metadata": encodeMetadata(metadata),
	})
}

// logJobError records a cron job failure
func (m *CronManager) logJobError(logID uint, jobName string, err error) {
	m.log.Error("job failed", "job", jobName, "error", err)
	m.finishJobLog(logID, map[string]interface{}{
		"status":    "failed",
		"error_msg": err.Error(),
	})
}

func (m *CronManager) finishJobLog(logID uint, updates map[string]interface{}) {
	if logID == 0 {
		return
	}

	var cronLog model.CronJobLog
	if err := m.db.First(&cronLog, logID).Error; err != nil {
		m.log.Warn("failed to load job log", "log_id", logID, "error", err)
		return
	}

	now := time.Now()
	updates["completed_at"] = now
	updates["duration"] = int(now.Sub(cronLog.StartedAt).Milliseconds())

	if err := m.db.Model(&cronLog).Updates(updates).Error; err != nil {
		m.log.Warn("failed to update job log", "log_id", logID, "error", err)
	}
}

func encodeMetadata(v interface{}) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// cronLogger routes the scheduler's own messages to the application logger
type cronLogger struct {
	log *utils.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
