// Package scheduler runs the transcript retention job. Without it the
// transcripts table grows without bound.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aydinberk/sumchat/internal/repo"
)

// retentionCron fires daily at 03:00 server time, outside interactive hours.
const retentionCron = "0 3 * * *"

// RunRetention starts a background cron that prunes transcripts older than
// retentionDays. retentionDays <= 0 disables pruning entirely. The returned
// stop function halts the cron and waits for a running job to finish.
func RunRetention(transcripts *repo.TranscriptRepo, retentionDays int) (stop func()) {
	if retentionDays <= 0 {
		slog.Info("transcript retention disabled")
		return func() {}
	}

	c := cron.New()
	prune := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		n, err := transcripts.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			slog.Error("transcript retention prune failed", "err", err)
			return
		}
		if n > 0 {
			slog.Info("transcript retention pruned", "rows", n, "cutoff", cutoff)
		}
	}

	if _, err := c.AddFunc(retentionCron, prune); err != nil {
		// The expression is a constant; this only trips if it is edited badly.
		slog.Error("scheduler: invalid cron expression", "expr", retentionCron, "err", err)
		return func() {}
	}

	c.Start()
	slog.Info("transcript retention scheduled", "cron", retentionCron, "retention_days", retentionDays)

	return func() {
		ctx := c.Stop()
		<-ctx.Done()
	}
}
