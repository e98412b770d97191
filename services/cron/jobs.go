package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/SirCraft007/grade-api/model"
)

// reconcileTimeout bounds one full reconciliation sweep
const reconcileTimeout = 30 * time.Minute

// ReconcileSummaries recomputes the stored summaries of every user so rows written
// outside the pipeline are brought back in line
func (m *CronManager) ReconcileSummaries() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	logID := m.logJobStart(jobReconcileSummaries)

	result, err := m.reconciler.RecomputeAll(ctx)
	if err != nil {
		m.logJobError(logID, jobReconcileSummaries, err)
		return
	}

	message := fmt.Sprintf("Recomputed %d of %d users", result.Succeeded, result.Users)
	if len(result.Failed) > 0 {
		m.logJobError(logID, jobReconcileSummaries,
			fmt.Errorf("%s, %d failed", message, len(result.Failed)))
		return
	}
	m.logJobComplete(logID, jobReconcileSummaries, message, result)
}

// CleanupCronLogs removes job logs older than the retention window
func (m *CronManager) CleanupCronLogs() {
	logID := m.logJobStart(jobCleanupCronLogs)

	cutoff := time.Now().Add(-cronLogRetention)
	result := m.db.Where("created_at < ?", cutoff).Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError(logID, jobCleanupCronLogs, fmt.Errorf("failed to clean cron logs: %w", result.Error))
		return
	}

	m.logJobComplete(logID, jobCleanupCronLogs,
		fmt.Sprintf("Cleaned %d old cron logs", result.RowsAffected),
		map[string]interface{}{"deleted": result.RowsAffected},
	)
}
