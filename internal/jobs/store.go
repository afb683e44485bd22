package jobs

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the concurrency-safe registry of jobs. A single coarse mutex
// guards the map; writes are infrequent relative to reader polling, and no
// operation blocks on I/O.
type Store struct {
	mu          sync.Mutex
	jobs        map[string]*Job
	subscribers map[string][]chan struct{}
}

// NewStore returns an empty job registry.
func NewStore() *Store {
	return &Store{
		jobs:        make(map[string]*Job),
		subscribers: make(map[string][]chan struct{}),
	}
}

// Create registers a new queued job and returns its snapshot.
func (s *Store) Create(params Params) Job {
	now := time.Now().UTC()
	job := &Job{
		// Short ids keep URLs and filenames readable; 8 hex chars of a
		// UUID is plenty for a single instance's working set.
		ID:        strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Status:    StatusQueued,
		Stage:     StageQueued,
		Progress:  0,
		Message:   "Job queued",
		URL:       params.URL,
		Lang:      params.Lang,
		Gender:    params.Gender,
		GPU:       params.GPU,
		Subtitle:  params.Subtitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return *job
}

// Get returns a snapshot of the job, or ok=false when unknown.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all jobs ordered by creation time.
func (s *Store) List() []Job {
	s.mu.Lock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Update applies mutate to the job under the store lock as one merged
// snapshot, then enforces the store invariants: terminal states absorb
// further changes, progress never decreases, the stage never moves backward,
// and a set error is immutable. Returns the resulting snapshot and whether
// the job exists.
func (s *Store) Update(id string, mutate func(*Job)) (Job, bool) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return Job{}, false
	}

	prev := *job
	if prev.Status.IsTerminal() {
		s.mu.Unlock()
		return prev, true
	}

	mutate(job)

	if job.Progress < prev.Progress {
		job.Progress = prev.Progress
	}
	if job.Progress > 100 {
		job.Progress = 100
	}
	if stageIndex(job.Stage) < stageIndex(prev.Stage) {
		job.Stage = prev.Stage
	}
	if prev.Error != "" {
		job.Error = prev.Error
		job.Status = StatusError
	}
	// Request parameters are immutable after creation.
	job.ID = prev.ID
	job.URL = prev.URL
	job.Lang = prev.Lang
	job.Gender = prev.Gender
	job.GPU = prev.GPU
	job.Subtitle = prev.Subtitle
	job.CreatedAt = prev.CreatedAt
	job.UpdatedAt = time.Now().UTC()

	snapshot := *job
	subs := append([]chan struct{}(nil), s.subscribers[id]...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return snapshot, true
}

// Subscribe registers for change notifications on one job. The returned
// channel receives a signal (coalesced) after each observable mutation;
// cancel releases the subscription. Subscribing to an unknown id is allowed;
// the channel simply never fires.
func (s *Store) Subscribe(id string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subscribers[id] = append(s.subscribers[id], ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscribers[id]
		for i, candidate := range subs {
			if candidate == ch {
				s.subscribers[id] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(s.subscribers[id]) == 0 {
			delete(s.subscribers, id)
		}
	}
	return ch, cancel
}
