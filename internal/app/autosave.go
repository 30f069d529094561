package app

import (
	"context"
	"log"
	"sync"
	"time"

	"code-session-service/internal/domain"
)

// SaveStatus is the autosave controller's UI-facing state.
type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
	SaveError  SaveStatus = "error"
)

// Autosaver drives writes into the draft store for one editor session:
// manual saves on the keyboard chord and periodic saves while the deadline
// governor still reports the session active. Terminal statuses revert to
// idle after a fixed delay.
type Autosaver struct {
	drafts   DraftStore
	identity domain.DraftIdentity
	lang     Language
	// buffer supplies the editor's current code; the transport keeps it
	// current from inbound messages.
	buffer   func() string
	governor *Governor // nil for untimed assignments
	interval time.Duration
	revert   time.Duration
	now      func() time.Time

	mu          sync.Mutex
	status      SaveStatus
	seq         int
	subscribers map[chan SaveStatus]struct{}
}

func NewAutosaver(drafts DraftStore, id domain.DraftIdentity, lang Language, buffer func() string, governor *Governor, interval, revert time.Duration) *Autosaver {
	return &Autosaver{
		drafts:      drafts,
		identity:    id,
		lang:        lang,
		buffer:      buffer,
		governor:    governor,
		interval:    interval,
		revert:      revert,
		now:         time.Now,
		subscribers: make(map[chan SaveStatus]struct{}),
	}
}

// Status returns the current state of the save state machine.
func (a *Autosaver) Status() SaveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == "" {
		return SaveIdle
	}
	return a.status
}

// Subscribe returns a channel receiving every status transition. The
// caller must invoke the returned cancel function to avoid leaks.
func (a *Autosaver) Subscribe() (<-chan SaveStatus, func()) {
	ch := make(chan SaveStatus, 8)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

// Save persists the current buffer. Code that is empty or identical to the
// language template is not worth keeping: the save is a no-op and the
// machine stays idle. Store failures surface as the error status, never as
// a returned error; editing must go on regardless.
func (a *Autosaver) Save(ctx context.Context) {
	code := a.buffer()
	if !Meaningful(code, a.lang) {
		return
	}

	a.transition(SaveSaving)
	if err := a.drafts.Put(ctx, a.identity, code); err != nil {
		log.Printf("autosave: write failed for %s: %v", a.identity.Key(), err)
		a.transitionAndRevert(SaveError)
		return
	}
	a.transitionAndRevert(SaveSaved)
}

// Run drives the periodic trigger. It returns when the context is done or
// the governor flips to expired; expiry suspends the interval entirely,
// only the manual chord can still save afterwards.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	var expired <-chan struct{}
	if a.governor != nil {
		expired = a.governor.Done()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-expired:
			return
		case <-ticker.C:
			if a.governor != nil && a.governor.Expired() {
				return
			}
			a.Save(ctx)
		}
	}
}

func (a *Autosaver) transition(status SaveStatus) {
	a.mu.Lock()
	a.seq++
	a.status = status
	a.broadcastLocked(status)
	a.mu.Unlock()
}

// transitionAndRevert enters a terminal status and schedules the fall back
// to idle, unless a newer transition happened in the meantime.
func (a *Autosaver) transitionAndRevert(status SaveStatus) {
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.status = status
	a.broadcastLocked(status)
	a.mu.Unlock()

	time.AfterFunc(a.revert, func() {
		a.mu.Lock()
		if a.seq == seq {
			a.status = SaveIdle
			a.broadcastLocked(SaveIdle)
		}
		a.mu.Unlock()
	})
}

func (a *Autosaver) broadcastLocked(status SaveStatus) {
	for ch := range a.subscribers {
		select {
		case ch <- status:
		default:
			// Drop the oldest update rather than block a slow reader.
			select {
			case <-ch:
			default:
			}
			ch <- status
		}
	}
}
