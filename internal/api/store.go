package api

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/samcharles93/chatter/internal/inference"
)

// DefaultMaxRuns is the number of run records a RunStore keeps by default.
const DefaultMaxRuns = 1024

// RunStore keeps a record of the prompts submitted through the server.
// Records are created when a prompt is queued and completed from the
// controller's publish hook. Past the limit the oldest finished record is
// evicted, or the oldest record when none has finished.
type RunStore struct {
	mu      sync.Mutex
	runs    map[string]*RunRecord
	order   []string
	maxRuns int
}

func NewRunStore() *RunStore {
	return NewRunStoreWithLimit(DefaultMaxRuns)
}

// NewRunStoreWithLimit returns a store holding at most maxRuns records.
// A non-positive limit selects DefaultMaxRuns.
func NewRunStoreWithLimit(maxRuns int) *RunStore {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	return &RunStore{
		runs:    make(map[string]*RunRecord),
		maxRuns: maxRuns,
	}
}

// Len reports how many records are held.
func (s *RunStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// insert must be called with s.mu held.
func (s *RunStore) insert(rec *RunRecord) {
	for len(s.runs) >= s.maxRuns {
		s.evictOne()
	}
	s.runs[rec.ID] = rec
	s.order = append(s.order, rec.ID)
}

func (s *RunStore) evictOne() {
	victim := 0
	for i, id := range s.order {
		if s.runs[id].Status != statusQueued {
			victim = i
			break
		}
	}
	delete(s.runs, s.order[victim])
	s.order = slices.Delete(s.order, victim, victim+1)
}

// Create records a queued prompt. The worker may finish before the submitting
// request gets here, so an existing record is left as is.
func (s *RunStore) Create(id, prompt string, now time.Time) RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.runs[id]; ok {
		return *rec
	}
	rec := &RunRecord{
		ID:        id,
		Object:    "run",
		Prompt:    prompt,
		Status:    statusQueued,
		CreatedAt: now.Unix(),
	}
	s.insert(rec)
	return *rec
}

// Complete records the outcome of a run.
func (s *RunStore) Complete(out inference.Outcome) RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[out.ID]
	if !ok {
		rec = &RunRecord{
			ID:        out.ID,
			Object:    "run",
			Prompt:    out.Prompt,
			CreatedAt: out.Finished.Unix(),
		}
		s.insert(rec)
	}
	completedAt := out.Finished.Unix()
	rec.CompletedAt = &completedAt
	if out.Err != nil {
		rec.Status = statusFailed
		rec.Error = outcomeError(out.Err)
		return *rec
	}
	rec.Status = statusCompleted
	if out.Result != nil {
		rec.Text = out.Result.Text
		rec.StopReason = string(out.Result.StopReason)
		rec.Tokens = out.Result.Stats.TokensGenerated
		rec.TPS = out.Result.Stats.TPS
	}
	return *rec
}

func (s *RunStore) Get(id string) (RunRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return RunRecord{}, false
	}
	return *rec, true
}

func (s *RunStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return false
	}
	delete(s.runs, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return true
}

func outcomeError(err error) *Error {
	e := &Error{Message: err.Error(), Type: "run_error"}
	var rf *inference.RunFailedError
	switch {
	case errors.As(err, &rf):
		e.Code = rf.Stage
	case errors.Is(err, inference.ErrClosed):
		e.Type = "server_error"
		e.Code = "closed"
	}
	return e
}
