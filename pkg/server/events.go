package server

import (
	"sync"

	"github.com/decred/slog"

	"github.com/haldrik/kaiserd/pkg/kaiser"
	"github.com/haldrik/kaiserd/pkg/server/internal/db"
)

// EventProcessor fans room events out to the notification, persistence
// and history handlers through a bounded queue and a fixed worker pool.
// Rooms publish and move on; nothing in the game path waits on fanout.
type EventProcessor struct {
	server   *Server
	log      slog.Logger
	queue    chan kaiser.RoomEvent
	workers  []*eventWorker
	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// eventWorker processes events from the queue
type eventWorker struct {
	id        int
	processor *EventProcessor
	stopChan  chan struct{}
	wg        *sync.WaitGroup
}

// NewEventProcessor creates a new event processor
func NewEventProcessor(server *Server, queueSize, workerCount int) *EventProcessor {
	processor := &EventProcessor{
		server:   server,
		log:      server.logBackend.Logger("EVENTS"),
		queue:    make(chan kaiser.RoomEvent, queueSize),
		stopChan: make(chan struct{}),
	}

	processor.workers = make([]*eventWorker, workerCount)
	for i := 0; i < workerCount; i++ {
		processor.workers[i] = &eventWorker{
			id:        i,
			processor: processor,
			stopChan:  make(chan struct{}),
			wg:        &processor.wg,
		}
	}

	return processor
}

// Start begins processing events
func (ep *EventProcessor) Start() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.started {
		return
	}

	ep.started = true
	ep.log.Infof("Starting event processor with %d workers", len(ep.workers))

	for _, worker := range ep.workers {
		ep.wg.Add(1)
		go worker.run()
	}
}

// Stop gracefully stops the event processor
func (ep *EventProcessor) Stop() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if !ep.started {
		return
	}

	ep.log.Infof("Stopping event processor...")

	close(ep.stopChan)
	for _, worker := range ep.workers {
		close(worker.stopChan)
	}
	ep.wg.Wait()

	ep.started = false
	ep.log.Infof("Event processor stopped")
}

// PublishEvent publishes an event for processing
func (ep *EventProcessor) PublishEvent(event kaiser.RoomEvent) {
	ep.mu.Lock()
	started := ep.started
	ep.mu.Unlock()

	if !started {
		ep.log.Warnf("Event processor not started, dropping event: %v", event.Type)
		return
	}

	select {
	case ep.queue <- event:
		ep.log.Debugf("Published event: %s for room %s", event.Type, event.RoomID)
	default:
		ep.log.Errorf("Event queue full, dropping event: %s for room %s", event.Type, event.RoomID)
	}
}

// run executes the worker loop
func (w *eventWorker) run() {
	defer w.wg.Done()
	w.processor.log.Debugf("Event worker %d started", w.id)

	for {
		select {
		case <-w.stopChan:
			w.processor.log.Debugf("Event worker %d stopping", w.id)
			return

		case <-w.processor.stopChan:
			w.processor.log.Debugf("Event worker %d stopping (processor shutdown)", w.id)
			return

		case event := <-w.processor.queue:
			w.processEvent(event)
		}
	}
}

// processEvent processes a single event using all registered handlers
func (w *eventWorker) processEvent(event kaiser.RoomEvent) {
	w.processor.log.Debugf("Worker %d processing event: %s for room %s", w.id, event.Type, event.RoomID)

	w.processNotifications(event)
	w.processPersistence(event)
	w.processHistory(event)
}

// processNotifications broadcasts the event's snapshot, redacted per
// seat.
func (w *eventWorker) processNotifications(event kaiser.RoomEvent) {
	handler := NewNotificationHandler(w.processor.server)
	handler.HandleEvent(event)
}

// processPersistence saves a crash-recovery snapshot at round and game
// boundaries, fire-and-forget.
func (w *eventWorker) processPersistence(event kaiser.RoomEvent) {
	switch event.Type {
	case kaiser.EventRoundScored, kaiser.EventGameOver, kaiser.EventPhaseChanged:
		if event.Snapshot == nil {
			return
		}
		w.processor.server.saveRoomStateAsync(event.RoomID, event.Snapshot, string(event.Type))
	}
}

// processHistory records the final result of a finished game.
func (w *eventWorker) processHistory(event kaiser.RoomEvent) {
	if event.Type != kaiser.EventGameOver || event.Snapshot == nil {
		return
	}
	snap := event.Snapshot
	res := &db.MatchResult{
		RoomID:     event.RoomID,
		WinnerTeam: snap.WinnerTeam,
		Scores:     snap.Scores,
		Rounds:     snap.Round + 1,
	}
	if err := w.processor.server.db.RecordMatchResult(res); err != nil {
		w.processor.log.Errorf("Failed to record match result for room %s: %v", event.RoomID, err)
	}
}
