package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"grading-coordinator/internal/domain"
	"grading-coordinator/internal/domain/model"
	"grading-coordinator/internal/domain/ports/adapter"
	"grading-coordinator/internal/domain/ports/repository"
)

// memJobRepo is the in-memory job store used by unit tests. Commit mirrors
// the production contract: version check, bump before the mutator runs, and
// no write at all when the mutator errors.
type memJobRepo struct {
	mu    sync.Mutex
	store map[string]*model.Job
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.Job)}
}

func cloneJob(j *model.Job) *model.Job {
	cp := *j
	cp.Answers = make([]model.AnswerRecord, len(j.Answers))
	copy(cp.Answers, j.Answers)
	if j.Insights != nil {
		ins := *j.Insights
		cp.Insights = &ins
	}
	if j.Report != nil {
		rep := *j.Report
		cp.Report = &rep
	}
	return &cp
}

func (m *memJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[job.JobID] = cloneJob(job)
	return nil
}

func (m *memJobRepo) Read(ctx context.Context, jobID string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(j), nil
}

func (m *memJobRepo) Commit(ctx context.Context, jobID string, expectedVersion int64, mutate repository.Mutator) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return nil, domain.ErrConflict
	}
	work := cloneJob(cur)
	work.Version = expectedVersion + 1
	work.UpdatedAt = time.Now()
	if err := mutate(work); err != nil {
		return nil, err
	}
	m.store[jobID] = work
	return cloneJob(work), nil
}

func (m *memJobRepo) List(ctx context.Context, state model.JobState, limit int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.Deleted {
			continue
		}
		if state != "" && j.State != state {
			continue
		}
		out = append(out, cloneJob(j))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memJobRepo) ClaimUploaded(ctx context.Context) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.store {
		if j.Deleted || j.State != model.JobStateUploaded {
			continue
		}
		j.State = model.JobStateProcessing
		j.Version++
		j.UpdatedAt = time.Now()
		return cloneJob(j), nil
	}
	return nil, domain.ErrNotFound
}

// memRefRepo holds reference keys in memory.
type memRefRepo struct {
	mu    sync.Mutex
	store map[string]*model.ReferenceKey
}

func newMemRefRepo() *memRefRepo {
	return &memRefRepo{store: make(map[string]*model.ReferenceKey)}
}

func (m *memRefRepo) Save(ctx context.Context, tx repository.Tx, ref *model.ReferenceKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ref
	m.store[ref.ReferenceID] = &cp
	return nil
}

func (m *memRefRepo) FindByID(ctx context.Context, refID string) (*model.ReferenceKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[refID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRefRepo) ListByTeacher(ctx context.Context, teacherID string) ([]*model.ReferenceKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ReferenceKey
	for _, r := range m.store {
		if r.TeacherID == teacherID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeAssessor returns a canned answer set or a configured error, counting
// invocations and remembering the last request.
type fakeAssessor struct {
	mu      sync.Mutex
	answers []model.AnswerRecord
	err     error
	calls   int
	lastReq adapter.AssessmentRequest
}

func (f *fakeAssessor) Assess(ctx context.Context, req adapter.AssessmentRequest) ([]model.AnswerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.AnswerRecord, len(f.answers))
	copy(out, f.answers)
	return out, nil
}

func (f *fakeAssessor) CountTokens(ctx context.Context, req adapter.AssessmentRequest) (int, error) {
	return 0, nil
}

// fakeSynthesizer returns canned insights or an error.
type fakeSynthesizer struct {
	insights *model.Insights
	err      error
	calls    int
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, studentName, subject string, answers []model.AnswerRecord, percentage float64) (*model.Insights, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.insights, nil
}

// fakeRenderer returns a deterministic key and counts renders.
type fakeRenderer struct {
	err   error
	calls int
	last  string
}

func (f *fakeRenderer) Render(ctx context.Context, job *model.Job, format string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.last = fmt.Sprintf("reports/%s-v%d.%s", job.JobID, job.Version, format)
	return f.last, nil
}

// fakeStore records puts and serves static URLs.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	urlErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return nil
}

func (f *fakeStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return "https://store.local/" + key, nil
}
