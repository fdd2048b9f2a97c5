// ABOUTME: Task progress state machine with a bounded history of finished runs
// ABOUTME: Begin supersedes silently; stale handles from superseded runs are ignored

package progress

import (
	"math"
	"slices"
	"sync"
	"time"
)

// State is the lifecycle state of a task.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

const (
	// HistoryLimit is the number of finished tasks retained.
	HistoryLimit = 100

	startPercent = 0.05
	maxRunning   = 0.99
)

// Step is one named stage of a task.
type Step struct {
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// Task is a snapshot of one logical operation.
type Task struct {
	State     State      `json:"state"`
	Title     string     `json:"title"`
	Detail    string     `json:"detail"`
	Percent   float64    `json:"percent"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Steps     []Step     `json:"steps"`
}

// Idle returns the task shown when nothing has run yet.
func Idle(now time.Time) Task {
	return Task{
		State:     StateIdle,
		Title:     "Idle",
		Detail:    "No active task",
		UpdatedAt: now,
		Steps:     []Step{},
	}
}

func (t Task) clone() Task {
	t.Steps = slices.Clone(t.Steps)
	if t.StartedAt != nil {
		started := *t.StartedAt
		t.StartedAt = &started
	}
	return t
}

// Tracker records the current task and the history of finished ones.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	current Task
	history []Task
	seq     uint64
	now     func() time.Time
}

// NewTracker creates an idle tracker. A nil clock uses time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		current: Idle(now()),
		now:     now,
	}
}

// Run is a handle on one begun task. Its methods do nothing once a later
// Begin has superseded the task or the task has finished.
type Run struct {
	tracker *Tracker
	seq     uint64
}

// Begin starts a new running task, discarding any task still running.
func (t *Tracker) Begin(title, detail string, steps []string) *Run {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.seq++

	s := make([]Step, len(steps))
	for i, name := range steps {
		s[i] = Step{Title: name}
	}

	t.current = Task{
		State:     StateRunning,
		Title:     title,
		Detail:    detail,
		Percent:   startPercent,
		StartedAt: &now,
		UpdatedAt: now,
		Steps:     s,
	}

	return &Run{tracker: t, seq: t.seq}
}

// Advance updates the running task. It is a no-op when nothing is running.
func (t *Tracker) Advance(stepIndex int, detail string, percent float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceLocked(stepIndex, detail, percent)
}

// Complete finishes the running task successfully.
func (t *Tracker) Complete(detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishLocked(StateCompleted, detail)
}

// Fail finishes the running task as failed, keeping its percent.
func (t *Tracker) Fail(detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishLocked(StateFailed, detail)
}

// Current returns a copy of the current task.
func (t *Tracker) Current() Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current.clone()
}

// History returns finished tasks, most recent first.
func (t *Tracker) History() []Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Task, len(t.history))
	for i, task := range t.history {
		out[i] = task.clone()
	}
	return out
}

// Advance updates the task if this run is still the current one.
func (r *Run) Advance(stepIndex int, detail string, percent float64) {
	r.tracker.mu.Lock()
	defer r.tracker.mu.Unlock()
	if r.seq != r.tracker.seq {
		return
	}
	r.tracker.advanceLocked(stepIndex, detail, percent)
}

// Complete finishes the task if this run is still the current one.
func (r *Run) Complete(detail string) {
	r.tracker.mu.Lock()
	defer r.tracker.mu.Unlock()
	if r.seq != r.tracker.seq {
		return
	}
	r.tracker.finishLocked(StateCompleted, detail)
}

// Fail finishes the task as failed if this run is still the current one.
func (r *Run) Fail(detail string) {
	r.tracker.mu.Lock()
	defer r.tracker.mu.Unlock()
	if r.seq != r.tracker.seq {
		return
	}
	r.tracker.finishLocked(StateFailed, detail)
}

// Active reports whether this run is the current running task.
func (r *Run) Active() bool {
	r.tracker.mu.Lock()
	defer r.tracker.mu.Unlock()
	return r.seq == r.tracker.seq && r.tracker.current.State == StateRunning
}

func (t *Tracker) advanceLocked(stepIndex int, detail string, percent float64) {
	if t.current.State != StateRunning {
		return
	}

	if math.IsNaN(percent) {
		percent = t.current.Percent
	}
	clamped := min(max(percent, 0), maxRunning)
	t.current.Percent = max(t.current.Percent, clamped)
	t.current.Detail = detail
	t.current.UpdatedAt = t.now()
	if stepIndex >= 0 && stepIndex < len(t.current.Steps) {
		t.current.Steps[stepIndex].Done = true
	}
}

func (t *Tracker) finishLocked(state State, detail string) {
	if t.current.State != StateRunning {
		return
	}

	t.current.State = state
	t.current.Detail = detail
	t.current.UpdatedAt = t.now()
	if state == StateCompleted {
		t.current.Percent = 1.0
		for i := range t.current.Steps {
			t.current.Steps[i].Done = true
		}
	}

	t.history = append([]Task{t.current.clone()}, t.history...)
	if len(t.history) > HistoryLimit {
		t.history = t.history[:HistoryLimit]
	}
}
