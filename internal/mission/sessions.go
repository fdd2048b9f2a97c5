// ABOUTME: Local session, journal and cron job management
// ABOUTME: Each mutation persists its collection and publishes a change

package mission

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/2389/mission-control/internal/conversation"
	"github.com/2389/mission-control/internal/store"
)

// AddSession creates a session bound to the profile's default session key
// and selects it.
func (o *Orchestrator) AddSession() Session {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	s := Session{
		ID:         uuid.New().String(),
		Title:      fmt.Sprintf("Session %d", len(o.sessions)+1),
		SessionKey: o.profile.DefaultSessionKey,
		Messages:   []Message{},
		UpdatedAt:  now,
	}
	o.sessions = slices.Insert(o.sessions, 0, s)
	o.selectedID = s.ID
	o.persistSessionsLocked()
	o.publishLocked(conversation.Change{Kind: conversation.ChangeSessions, SessionID: s.ID})
	o.addEventLocked(LevelInfo, "Created new local session")
	return s.clone()
}

// RenameSession sets the title of a session.
func (o *Orchestrator) RenameSession(id, title string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := o.sessionIndexLocked(id)
	if idx < 0 {
		return ErrSessionNotFound
	}
	o.sessions[idx].Title = title
	o.sessions[idx].UpdatedAt = o.now()
	o.persistSessionsLocked()
	o.publishLocked(conversation.Change{Kind: conversation.ChangeSessions, SessionID: id})
	return nil
}

// DeleteSession removes a session. Deleting the selected session selects
// the first remaining one.
func (o *Orchestrator) DeleteSession(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := o.sessionIndexLocked(id)
	if idx < 0 {
		return ErrSessionNotFound
	}
	o.sessions = slices.Delete(o.sessions, idx, idx+1)
	if o.selectedID == id {
		o.selectedID = ""
		if len(o.sessions) > 0 {
			o.selectedID = o.sessions[0].ID
		}
	}
	o.persistSessionsLocked()
	o.publishLocked(conversation.Change{Kind: conversation.ChangeSessions, SessionID: id})
	o.addEventLocked(LevelWarning, "Deleted local session")
	return nil
}

// SelectSession makes id the target of SendMessage.
func (o *Orchestrator) SelectSession(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sessionIndexLocked(id) < 0 {
		return ErrSessionNotFound
	}
	o.selectedID = id
	o.publishLocked(conversation.Change{Kind: conversation.ChangeSessions, SessionID: id})
	return nil
}

// Sessions returns copies of all local sessions, newest first.
func (o *Orchestrator) Sessions() []Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cloneSessionsLocked()
}

// Session returns a copy of one session.
func (o *Orchestrator) Session(id string) (Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := o.sessionIndexLocked(id)
	if idx < 0 {
		return Session{}, false
	}
	return o.sessions[idx].clone(), true
}

// SelectedSession returns a copy of the selected session, if any.
func (o *Orchestrator) SelectedSession() (Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := o.sessionIndexLocked(o.selectedID)
	if idx < 0 {
		return Session{}, false
	}
	return o.sessions[idx].clone(), true
}

func (o *Orchestrator) sessionIndexLocked(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(o.sessions, func(s Session) bool { return s.ID == id })
}

func (o *Orchestrator) cloneSessionsLocked() []Session {
	out := make([]Session, len(o.sessions))
	for i, s := range o.sessions {
		out[i] = s.clone()
	}
	return out
}

// AddJournalEntry records a note. A blank title is ignored and reports false.
func (o *Orchestrator) AddJournalEntry(title, body string) (JournalEntry, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return JournalEntry{}, false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	entry := JournalEntry{
		ID:        uuid.New().String(),
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.journal = slices.Insert(o.journal, 0, entry)
	o.persistLocked(store.KeyJournal, o.journal)
	o.publishLocked(conversation.Change{Kind: conversation.ChangeJournal})
	o.addEventLocked(LevelInfo, "Journal entry added")
	return entry, true
}

// DeleteJournalEntry removes a note.
func (o *Orchestrator) DeleteJournalEntry(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := slices.IndexFunc(o.journal, func(e JournalEntry) bool { return e.ID == id })
	if idx < 0 {
		return ErrJournalEntryNotFound
	}
	o.journal = slices.Delete(o.journal, idx, idx+1)
	o.persistLocked(store.KeyJournal, o.journal)
	o.publishLocked(conversation.Change{Kind: conversation.ChangeJournal})
	o.addEventLocked(LevelWarning, "Journal entry deleted")
	return nil
}

// JournalEntries returns the journal, newest first.
func (o *Orchestrator) JournalEntries() []JournalEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.journal)
}

// ToggleCronJob flips the enabled flag of a cron job and returns its new state.
func (o *Orchestrator) ToggleCronJob(id string) (CronJob, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := slices.IndexFunc(o.cronJobs, func(j CronJob) bool { return j.ID == id })
	if idx < 0 {
		return CronJob{}, ErrCronJobNotFound
	}
	job := &o.cronJobs[idx]
	job.Enabled = !job.Enabled
	o.persistLocked(store.KeyCronJobs, o.cronJobs)
	o.publishLocked(conversation.Change{Kind: conversation.ChangeCronJobs})

	state := "disabled"
	if job.Enabled {
		state = "enabled"
	}
	o.addEventLocked(LevelInfo, fmt.Sprintf("Cron job %s %s", job.Name, state))
	return *job, nil
}

// CronJobs returns the tracked cron jobs.
func (o *Orchestrator) CronJobs() []CronJob {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.cronJobs)
}
