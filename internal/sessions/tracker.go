package sessions

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
)

// SaveInput is one autosave call from the storefront.
type SaveInput struct {
	SessionID      string
	Customer       models.CustomerSnapshot
	Cart           []models.CartLine
	DeliveryZoneID *uuid.UUID
}

// Meaningful reports whether the input carries anything worth persisting.
func (in SaveInput) Meaningful() bool {
	return len(in.Cart) > 0 || !in.Customer.IsBlank()
}

type snapshotWriter interface {
	Save(ctx context.Context, snap Snapshot) (SaveOutcome, error)
}

type TrackerOptions struct {
	Debounce       time.Duration
	PersistTimeout time.Duration
	Logger         *logger.Logger
	Metrics        *metrics.CheckoutMetrics
}

type pendingSave struct {
	snap  Snapshot
	timer *time.Timer
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Tracker coalesces bursts of autosaves per session and persists the last one
// once the session has been quiet for the debounce window. Persistence failures
// are logged and counted, never returned.
type Tracker struct {
	repo           snapshotWriter
	debounce       time.Duration
	persistTimeout time.Duration
	logg           *logger.Logger
	metrics        *metrics.CheckoutMetrics
	now            func() time.Time

	mu       sync.Mutex
	pending  map[string]*pendingSave
	last     map[string]int64
	flushing map[string]*sessionLock
	closed   bool
	wg       sync.WaitGroup
}

func NewTracker(repo snapshotWriter, opts TrackerOptions) *Tracker {
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Tracker{
		repo:           repo,
		debounce:       opts.Debounce,
		persistTimeout: opts.PersistTimeout,
		logg:           opts.Logger,
		metrics:        opts.Metrics,
		now:            time.Now,
		pending:        map[string]*pendingSave{},
		last:           map[string]int64{},
		flushing:       map[string]*sessionLock{},
	}
}

// Save schedules a write and returns immediately. A later Save for the same
// session within the debounce window replaces this one.
func (t *Tracker) Save(ctx context.Context, in SaveInput) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.SessionID == "" || !in.Meaningful() {
		t.metrics.Autosave(metrics.AutosaveSkipped)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	submitted := t.now().UTC()
	revision := submitted.UnixNano()
	if prev := t.last[in.SessionID]; revision <= prev {
		revision = prev + 1
	}
	t.last[in.SessionID] = revision

	if prev, ok := t.pending[in.SessionID]; ok && prev.timer.Stop() {
		t.wg.Done()
	}

	entry := &pendingSave{snap: Snapshot{
		SessionID:      in.SessionID,
		Customer:       in.Customer,
		Cart:           in.Cart,
		DeliveryZoneID: in.DeliveryZoneID,
		Revision:       revision,
		SubmittedAt:    submitted,
	}}
	t.wg.Add(1)
	entry.timer = time.AfterFunc(t.debounce, func() { t.fire(in.SessionID, revision) })
	t.pending[in.SessionID] = entry
}

// Cancel drops a pending save for the session. A write already in flight is
// left to finish; the repository refuses it once the session is converted.
func (t *Tracker) Cancel(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.pending[sessionID]
	if !ok {
		return
	}
	delete(t.pending, sessionID)
	if entry.timer.Stop() {
		t.wg.Done()
	}
	t.metrics.Autosave(metrics.AutosaveCancelled)
}

// Flush persists every pending save now.
func (t *Tracker) Flush(ctx context.Context) {
	t.mu.Lock()
	due := make([]Snapshot, 0, len(t.pending))
	for id, entry := range t.pending {
		if entry.timer.Stop() {
			t.wg.Done()
		}
		due = append(due, entry.snap)
		delete(t.pending, id)
	}
	t.mu.Unlock()

	for _, snap := range due {
		if ctx.Err() != nil {
			return
		}
		t.persist(snap)
	}
}

// Close stops accepting saves, flushes what is pending and waits for in-flight writes.
func (t *Tracker) Close(ctx context.Context) {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.Flush(ctx)
	t.wg.Wait()
}

func (t *Tracker) fire(sessionID string, revision int64) {
	defer t.wg.Done()

	t.mu.Lock()
	entry, ok := t.pending[sessionID]
	if !ok || entry.snap.Revision != revision {
		t.mu.Unlock()
		return
	}
	delete(t.pending, sessionID)
	t.mu.Unlock()

	t.persist(entry.snap)
}

func (t *Tracker) persist(snap Snapshot) {
	unlock := t.lockSession(snap.SessionID)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), t.persistTimeout)
	defer cancel()
	ctx = t.logg.WithSessionID(ctx, snap.SessionID)

	outcome, err := t.repo.Save(ctx, snap)
	if err != nil {
		t.metrics.Autosave(metrics.AutosaveFailed)
		t.logg.Error(ctx, "checkout session autosave failed", err)
		return
	}
	if outcome == SaveStale {
		t.metrics.Autosave(metrics.AutosaveStale)
		t.logg.Debug(t.logg.WithField(ctx, "revision", snap.Revision), "checkout session autosave superseded")
		return
	}
	t.metrics.Autosave(metrics.AutosavePersisted)
}

// lockSession serializes writes per session so flushes never overlap in-process.
func (t *Tracker) lockSession(sessionID string) func() {
	t.mu.Lock()
	lock, ok := t.flushing[sessionID]
	if !ok {
		lock = &sessionLock{}
		t.flushing[sessionID] = lock
	}
	lock.refs++
	t.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		t.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(t.flushing, sessionID)
			if _, waiting := t.pending[sessionID]; !waiting {
				delete(t.last, sessionID)
			}
		}
		t.mu.Unlock()
	}
}
