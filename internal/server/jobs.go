package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nao1215/seoaudit/internal/pipeline"
)

// JobStatus is the lifecycle state of an asynchronous audit.
type JobStatus string

// Job states, in lifecycle order.
const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is the externally visible state of an asynchronous audit.
type Job struct {
	ID         uuid.UUID          `json:"id"`
	URL        string             `json:"url"`
	MaxPages   int                `json:"max_pages,omitempty"`
	Status     JobStatus          `json:"status"`
	Progress   *pipeline.Progress `json:"progress,omitempty"`
	AuditID    *uuid.UUID         `json:"audit_id,omitempty"`
	Error      string             `json:"error,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

// jobTracker remembers the most recent jobs. Old jobs are evicted once the
// tracker is full; their audits remain in the history database.
type jobTracker struct {
	mu   sync.Mutex
	jobs *lru.Cache[uuid.UUID, *Job]
}

func newJobTracker(size int) *jobTracker {
	if size < 1 {
		size = defaultJobHistory
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[uuid.UUID, *Job](size) //nolint:errcheck // size is positive
	return &jobTracker{jobs: cache}
}

func (t *jobTracker) create(url string, maxPages int) Job {
	job := &Job{
		ID:        uuid.New(),
		URL:       url,
		MaxPages:  maxPages,
		Status:    JobQueued,
		CreatedAt: time.Now(),
	}
	t.mu.Lock()
	t.jobs.Add(job.ID, job)
	t.mu.Unlock()
	return *job
}

// get returns a copy of the job so callers never race with updates.
func (t *jobTracker) get(id uuid.UUID) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs.Peek(id)
	if !ok {
		return Job{}, false
	}
	out := *job
	if job.Progress != nil {
		p := *job.Progress
		out.Progress = &p
	}
	return out, true
}

func (t *jobTracker) update(id uuid.UUID, fn func(*Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs.Peek(id); ok {
		fn(job)
	}
}

// sink records pipeline progress on the job.
func (t *jobTracker) sink(id uuid.UUID) pipeline.Sink {
	return pipeline.SinkFunc(func(p pipeline.Progress) {
		t.update(id, func(job *Job) {
			if job.Status == JobQueued {
				job.Status = JobRunning
			}
			if job.AuditID == nil {
				auditID := p.AuditID
				job.AuditID = &auditID
			}
			job.Progress = &p
		})
	})
}

func (t *jobTracker) finish(id uuid.UUID, auditID uuid.UUID, err error) {
	t.update(id, func(job *Job) {
		now := time.Now()
		job.FinishedAt = &now
		if auditID != uuid.Nil {
			job.AuditID = &auditID
		}
		if err != nil {
			job.Status = JobFailed
			job.Error = err.Error()
			return
		}
		job.Status = JobDone
	})
}
