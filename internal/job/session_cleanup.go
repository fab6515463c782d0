package job

import (
	"context"
	"time"

	"app/internal/repository"

	"go.uber.org/zap"
)

// 期限切れ・失効済みセッションの定期削除。
// リクエスト経路とは独立に回る（Session StoreのPurgeExpiredを叩くだけ）。
type SessionCleanupWorker struct {
	sessions  repository.SessionRepository
	retention time.Duration
	interval  time.Duration
	log       *zap.Logger
}

func NewSessionCleanupWorker(
	sessions repository.SessionRepository,
	retention time.Duration,
	interval time.Duration,
	log *zap.Logger,
) *SessionCleanupWorker {
	return &SessionCleanupWorker{
		sessions:  sessions,
		retention: retention,
		interval:  interval,
		log:       log,
	}
}

// Start はバックグラウンドで定期実行を始める。ctxのキャンセルで止まる。
func (w *SessionCleanupWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *SessionCleanupWorker) run(ctx context.Context) {
	//起動直後に1回流してからticker待ち
	w.purge(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("session cleanup worker stopped")
			return
		case <-ticker.C:
			w.purge(ctx)
		}
	}
}

func (w *SessionCleanupWorker) purge(ctx context.Context) {
	deleted, err := w.sessions.PurgeExpired(ctx, time.Now(), w.retention)
	if err != nil {
		w.log.Error("session purge failed", zap.Error(err))
		return
	}

	if deleted > 0 {
		w.log.Info("purged stale sessions", zap.Int64("count", deleted))
	}
}
