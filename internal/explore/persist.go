package explore

import (
	"context"

	"cartograph/internal/logging"
)

// Persist flushes the planned graph writes in one transaction. Persistence
// is best effort: a failed flush is logged and the queries are dropped, but
// exploration status is never changed here. The map on disk may lag the run;
// the run does not stall for the map.
func Persist(ctx context.Context, sc *StageContext, s RunState) Delta {
	timer := logging.StartTimer(logging.CategoryPersist, "persist")
	defer timer.Stop()

	if len(s.PendingQueries) == 0 {
		return Delta{}
	}

	if err := sc.Graph.WriteBatch(ctx, s.PendingQueries); err != nil {
		logging.PersistError("graph write batch failed (%d queries dropped): %v", len(s.PendingQueries), err)
	} else {
		logging.Persist("persisted %d graph queries", len(s.PendingQueries))
	}
	return Delta{ClearQueries: true}
}
