package postgres

import (
	"context"
	"encoding/json"
	"time"

	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/repository"
	"grading-coordinator/internal/infra/metrics"
	red "grading-coordinator/internal/infra/redis"
)

var _ repository.JobRepository = (*jobRepoCacheDecorator)(nil)

// jobRepoCacheDecorator fronts Read with a Redis projection cache. Every
// write path invalidates before delegating, so a cached projection can never
// outlive the version it was read at.
type jobRepoCacheDecorator struct {
	inner repository.JobRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewJobRepoCacheDecorator(inner repository.JobRepository, cache red.RedisClient, ttl time.Duration) repository.JobRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &jobRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func jobKey(jobID string) string { return "job:" + jobID }

func (d *jobRepoCacheDecorator) Read(ctx context.Context, jobID string) (*model.Job, error) {
	if val, err := d.cache.Get(ctx, jobKey(jobID)); err == nil {
		var job model.Job
		if json.Unmarshal([]byte(val), &job) == nil {
			metrics.IncProjectionCache("hit")
			return &job, nil
		}
	} else if err != red.Nil {
		metrics.IncProjectionCache("error")
	}

	metrics.IncProjectionCache("miss")
	job, err := d.inner.Read(ctx, jobID)
	if err != nil {
		return nil, err
	}
	d.fill(ctx, job)
	return job, nil
}

func (d *jobRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	_ = d.cache.Del(ctx, jobKey(job.JobID))
	return d.inner.Create(ctx, tx, job)
}

func (d *jobRepoCacheDecorator) Commit(ctx context.Context, jobID string, expectedVersion int64, mutate repository.Mutator) (*model.Job, error) {
	_ = d.cache.Del(ctx, jobKey(jobID))
	job, err := d.inner.Commit(ctx, jobID, expectedVersion, mutate)
	if err != nil {
		return nil, err
	}
	d.fill(ctx, job)
	return job, nil
}

func (d *jobRepoCacheDecorator) List(ctx context.Context, state model.JobState, limit int) ([]*model.Job, error) {
	// Listings always come from the store; caching them buys little and
	// complicates invalidation.
	return d.inner.List(ctx, state, limit)
}

func (d *jobRepoCacheDecorator) ClaimUploaded(ctx context.Context) (*model.Job, error) {
	job, err := d.inner.ClaimUploaded(ctx)
	if err != nil {
		return nil, err
	}
	_ = d.cache.Del(ctx, jobKey(job.JobID))
	d.fill(ctx, job)
	return job, nil
}

func (d *jobRepoCacheDecorator) fill(ctx context.Context, job *model.Job) {
	if job == nil {
		return
	}
	if b, err := json.Marshal(job); err == nil {
		_ = d.cache.Set(ctx, jobKey(job.JobID), b, d.ttl)
	}
}
