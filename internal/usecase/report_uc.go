package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
	"grading-coordinator/internal/domain/ports/repository"
)

// Compile-time check
var _ ReportUseCase = (*reportUC)(nil)

const DefaultReportFormat = "xlsx"

type ReportUseCase interface {
	// Generate renders the report unless a cached handle is still current,
	// in which case it is returned without touching the renderer.
	Generate(ctx context.Context, jobID, format string) (*model.Job, error)
	// Download returns a presigned URL for a current report. A missing or
	// stale report fails with domain.ErrReportNotReady; generation and
	// download stay distinct so callers can pre-warm reports.
	Download(ctx context.Context, jobID string) (string, error)
}

type reportUC struct {
	jobs     repository.JobRepository
	renderer adapter.ReportRenderer
	store    adapter.ArtifactStore
	expiry   time.Duration
	log      *zerolog.Logger
}

func NewReportUseCase(jobs repository.JobRepository, renderer adapter.ReportRenderer, store adapter.ArtifactStore, expiry time.Duration, logger *zerolog.Logger) *reportUC {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	l := logger.With().Str("component", "ReportUseCase").Logger()
	return &reportUC{jobs: jobs, renderer: renderer, store: store, expiry: expiry, log: &l}
}

func (u *reportUC) Generate(ctx context.Context, jobID, format string) (*model.Job, error) {
	if format == "" {
		format = DefaultReportFormat
	}
	snap, err := u.jobs.Read(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if _, err := domain.NextState(snap.State, model.OpGenerateReport); err != nil {
		return nil, err
	}
	if snap.ReportCurrent() && snap.Report.Format == format {
		return snap, nil
	}

	objectKey, err := u.renderer.Render(ctx, snap, format)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	job, err := u.jobs.Commit(ctx, jobID, snap.Version, func(job *model.Job) error {
		next, err := domain.NextState(job.State, model.OpGenerateReport)
		if err != nil {
			return err
		}
		// job.Version here is the version being committed, so the handle is
		// current exactly until the next mutation.
		job.Report = &model.ReportHandle{
			ObjectKey:  objectKey,
			Format:     format,
			Version:    job.Version,
			RenderedAt: time.Now(),
		}
		job.State = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().Str("job_id", job.JobID).Str("format", format).Str("object_key", objectKey).Msg("report generated")
	return job, nil
}

func (u *reportUC) Download(ctx context.Context, jobID string) (string, error) {
	job, err := u.jobs.Read(ctx, jobID)
	if err != nil {
		return "", err
	}
	if !job.ReportCurrent() {
		return "", domain.ErrReportNotReady
	}
	url, err := u.store.PresignedURL(ctx, job.Report.ObjectKey, u.expiry)
	if err != nil {
		return "", fmt.Errorf("presign report: %w", err)
	}
	return url, nil
}
