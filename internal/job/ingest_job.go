package job

import (
	"context"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/service"
)

type Ingestor interface {
	Run(ctx context.Context) (*service.IngestReport, error)
}

// IngestJob rebuilds the corpus on a schedule.
type IngestJob struct {
	ingest Ingestor
}

func NewIngestJob(ingest Ingestor) *IngestJob {
	return &IngestJob{ingest: ingest}
}

func (j *IngestJob) Name() string {
	return "ingest"
}

func (j *IngestJob) Run(ctx context.Context) error {
	report, err := j.ingest.Run(ctx)
	if errors.Is(err, appErr.ErrIngestRunning) {
		logutil.GetLogger(ctx).Info("scheduled ingestion skipped, a run is in progress")
		return nil
	}
	if err != nil {
		return err
	}
	if report.Partial() {
		logutil.GetLogger(ctx).Warn("scheduled ingestion finished with failed chunks",
			zap.String("run_id", report.RunID), zap.Int("failed", report.Failed))
	}
	return nil
}
