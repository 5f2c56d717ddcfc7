package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SegmentsForJob is the legacy read path: it re-projects scene rows rather
// than maintaining a parallel write path, since every render job in this
// pipeline is authored as a Scene Graph. Present only so callers still on
// the legacy Segment shape keep working.
func (db *DB) SegmentsForJob(ctx context.Context, jobID uuid.UUID) ([]Segment, error) {
	scenes, err := db.ScenesForJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load segments for job: %w", err)
	}
	return SegmentsFromScenes(scenes), nil
}
