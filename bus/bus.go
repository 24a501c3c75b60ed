// Package bus provides the process-wide event bus: the single entry point
// for publishing run lifecycle events, fanning them out to subscribers and
// appending them to the durable run log.
package bus

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/agentviz/domain"
	"github.com/xiaot623/agentviz/runlog"
)

var (
	// ErrRunAlreadyActive is returned by StartRun while another run's log
	// is still open.
	ErrRunAlreadyActive = errors.New("a run is already active")
	// ErrNoActiveRun is returned by Publish or CloseRun without an open
	// run. The event is dropped; callers should only publish inside a run.
	ErrNoActiveRun = errors.New("no active run")
)

// DefaultQueueSize is the per-subscriber outbound queue bound.
const DefaultQueueSize = 256

// Catalog records run lifecycles for the replay picker. Implemented by the
// sqlite store; may be nil.
type Catalog interface {
	CreateRun(record *domain.RunRecord) error
	FinishRun(runID string, status domain.RunStatus, endedAt time.Time, eventCount int, errText string) error
}

// Subscriber is one live observer's view of the bus: a history snapshot
// taken at registration plus a bounded live channel. The snapshot and the
// channel together are gap-free and duplicate-free with respect to
// concurrent publishes.
type Subscriber struct {
	ID      string
	History []domain.Event
	ch      chan domain.Event
}

// Events returns the live delivery channel. It is closed on unsubscribe,
// including the forced unsubscribe of a slow consumer.
func (s *Subscriber) Events() <-chan domain.Event {
	return s.ch
}

// Bus owns the active run log, the history buffer and the subscriber set.
// One run may be active per process at a time. A single mutex guards all
// three so that registration-plus-history-snapshot is atomic with respect
// to publishes.
type Bus struct {
	mu          sync.Mutex
	runsRoot    string
	queueSize   int
	catalog     Catalog
	subscribers map[string]*Subscriber

	active  *activeRun
	history []domain.Event
	demoID  string // current or most recently completed run's demo
	running bool
}

type activeRun struct {
	runID     string
	demoID    string
	log       *runlog.Writer
	startedAt time.Time
}

// RunHandle is the owned resource returned by StartRun. All publishing for
// a run goes through its handle, making "no active run" a checkable
// precondition rather than ambient state.
type RunHandle struct {
	bus    *Bus
	RunID  string
	DemoID string
}

// New creates a bus writing run logs under runsRoot. catalog may be nil.
func New(runsRoot string, queueSize int, catalog Catalog) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		runsRoot:    runsRoot,
		queueSize:   queueSize,
		catalog:     catalog,
		subscribers: make(map[string]*Subscriber),
	}
}

// StartRun opens a new run log for the demo and resets the history buffer.
// Fails with ErrRunAlreadyActive while another run's log is open.
func (b *Bus) StartRun(demoID string) (*RunHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil {
		return nil, ErrRunAlreadyActive
	}

	startedAt := time.Now()
	writer, err := runlog.NewWriter(b.runsRoot, demoID, startedAt)
	if err != nil {
		return nil, err
	}

	runID := "run_" + uuid.New().String()[:8]
	b.active = &activeRun{
		runID:     runID,
		demoID:    demoID,
		log:       writer,
		startedAt: startedAt,
	}
	b.history = nil
	b.demoID = demoID
	b.running = true

	if b.catalog != nil {
		record := &domain.RunRecord{
			RunID:     runID,
			DemoID:    demoID,
			Status:    domain.RunStatusRunning,
			LogPath:   writer.Path(),
			StartedAt: startedAt,
		}
		if err := b.catalog.CreateRun(record); err != nil {
			log.Printf("WARN: failed to catalog run %s: %v", runID, err)
		}
	}

	log.Printf("Run started: %s (demo: %s, log: %s)", runID, demoID, writer.Path())
	return &RunHandle{bus: b, RunID: runID, DemoID: demoID}, nil
}

// Publish appends the event to the open run log, then fans it out. The
// append is synchronous and flushed before fan-out; a slow subscriber is
// dropped rather than ever blocking the producer.
func (h *RunHandle) Publish(event domain.Event) error {
	return h.bus.publish(h.RunID, event)
}

// Close publishes the terminal event, flushes and closes the run log and
// clears active-run status. finalType must be run-completed or run-failed.
func (h *RunHandle) Close(finalType domain.EventType, data map[string]interface{}) error {
	return h.bus.closeRun(h.RunID, finalType, data)
}

func (b *Bus) publish(runID string, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active == nil || b.active.runID != runID {
		log.Printf("ERROR: publish with no active run (type: %s)", event.Type)
		return ErrNoActiveRun
	}

	event.Seq = len(b.history)
	event.DemoID = b.active.demoID

	if err := b.active.log.Append(event); err != nil {
		return err
	}
	b.history = append(b.history, event)
	b.fanOutLocked(event)
	return nil
}

// fanOutLocked delivers to every subscriber non-blocking. Callers hold mu.
func (b *Bus) fanOutLocked(event domain.Event) {
	for id, sub := range b.subscribers {
		select {
		case sub.ch <- event:
		default:
			// Queue full: the consumer is too slow to keep watching live.
			log.Printf("Subscriber %s queue full, dropping", id)
			delete(b.subscribers, id)
			close(sub.ch)
		}
	}
}

func (b *Bus) closeRun(runID string, finalType domain.EventType, data map[string]interface{}) error {
	if !finalType.Terminal() {
		return errors.New("close requires a terminal event type")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active == nil || b.active.runID != runID {
		return ErrNoActiveRun
	}

	event := domain.NewEvent(finalType, data)
	event.Seq = len(b.history)
	event.DemoID = b.active.demoID
	if err := b.active.log.Append(event); err != nil {
		log.Printf("ERROR: failed to append terminal event: %v", err)
	}
	b.history = append(b.history, event)
	b.fanOutLocked(event)

	if err := b.active.log.Close(); err != nil {
		log.Printf("ERROR: failed to close run log: %v", err)
	}

	if b.catalog != nil {
		status := domain.RunStatusCompleted
		errText := ""
		if finalType == domain.EventTypeRunFailed {
			status = domain.RunStatusFailed
			if data != nil {
				if s, ok := data["error"].(string); ok {
					errText = s
				}
			}
		}
		// The terminal event's timestamp is the run's end time.
		if err := b.catalog.FinishRun(runID, status, event.Time(), len(b.history), errText); err != nil {
			log.Printf("WARN: failed to finish cataloged run %s: %v", runID, err)
		}
	}

	log.Printf("Run closed: %s (%s, %d events)", runID, finalType, len(b.history))
	b.active = nil
	b.running = false
	return nil
}

// History returns all events of the current or most recently completed
// run, in publish order. The copy is gap-free relative to what live
// delivery sends next.
func (b *Bus) History() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Event, len(b.history))
	copy(out, b.history)
	return out
}

// Subscribe registers a new observer. The returned subscriber carries a
// history snapshot taken in the same critical section as the channel
// registration, so no event is duplicated or skipped around the join.
func (b *Bus) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:      uuid.New().String(),
		History: make([]domain.Event, len(b.history)),
		ch:      make(chan domain.Event, b.queueSize),
	}
	copy(sub.History, b.history)
	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber. Idempotent; safe after the peer has
// already been dropped.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub.ID]; ok {
		delete(b.subscribers, sub.ID)
		close(sub.ch)
	}
}

// Status reports the current/most recent demo and whether a run is open.
func (b *Bus) Status() (demoID string, running bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.demoID, b.running
}

// SubscriberCount returns the number of registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
