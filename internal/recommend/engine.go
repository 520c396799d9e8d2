package recommend

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/snapshot"
)

// Engine answers queries against the currently published snapshot. Swap
// replaces it for subsequent queries while in-flight queries finish on the
// snapshot they started with.
type Engine struct {
	current atomic.Pointer[snapshot.Snapshot]
	ranker  *Ranker
	logger  *zap.Logger
}

func NewEngine(ranker *Ranker, log *zap.Logger) *Engine {
	if ranker == nil {
		ranker = NewRanker()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{ranker: ranker, logger: log}
}

// Swap publishes snap and returns the previous snapshot, if any.
func (e *Engine) Swap(snap *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	previous := e.current.Swap(snap)
	e.logger.Info("snapshot published", logger.SnapshotFields(snap.ID, snap.Users.Len(), snap.Jobs.Len())...)
	return previous, nil
}

// Current returns the published snapshot or nil.
func (e *Engine) Current() *snapshot.Snapshot {
	return e.current.Load()
}

// Recommend ranks jobs for userID using the job weight the snapshot was built with.
func (e *Engine) Recommend(ctx context.Context, userID int64, topN int) (*Result, error) {
	snap := e.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return e.ranker.rank(ctx, userID, snap.Users, snap.Jobs, snap.Matrix, snap.Weights.Job, topN)
}
