package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/vboarder/vboarder/internal/knowledge"
	"github.com/vboarder/vboarder/internal/session"
)

// SessionCleanupJob deletes session files whose last write is older than
// the configured TTL.
type SessionCleanupJob struct {
	Sessions *session.Manager
	TTL      time.Duration
	Cron     string
	Logger   *slog.Logger
}

func (j *SessionCleanupJob) Name() string     { return "session_cleanup" }
func (j *SessionCleanupJob) Schedule() string { return j.Cron }

func (j *SessionCleanupJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	removed := j.Sessions.PruneStale(j.TTL)
	if removed > 0 && j.Logger != nil {
		j.Logger.Info("removed stale sessions", "count", removed, "ttl", j.TTL)
	}
	return nil
}

// KnowledgeCompactionJob trims the shared fact table to its retention
// bound and vacuums the database.
type KnowledgeCompactionJob struct {
	Store  *knowledge.Store
	Keep   int
	Cron   string
	Logger *slog.Logger
}

func (j *KnowledgeCompactionJob) Name() string     { return "knowledge_compaction" }
func (j *KnowledgeCompactionJob) Schedule() string { return j.Cron }

func (j *KnowledgeCompactionJob) Run(ctx context.Context) error {
	removed, err := j.Store.Compact(ctx, j.Keep)
	if err != nil {
		return err
	}
	if removed > 0 && j.Logger != nil {
		j.Logger.Info("compacted knowledge store", "removed", removed, "kept", j.Keep)
	}
	return nil
}
