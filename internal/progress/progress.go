// Package progress fans job events out to interested consumers: the store
// updater that persists them and the webhook notifier that forwards status
// transitions to callers.
package progress

import (
	"context"
	"log"
	"sync"

	"github.com/ModawnAI/hydra-compose-runpod/internal/jobstore"
	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

// Event is one progress report from a running pipeline. Transition marks
// events where the job's status changed (queued -> processing, terminal),
// which is what webhook subscribers care about; intermediate percentage
// bumps carry Transition=false.
type Event struct {
	JobID      string
	Status     models.JobStatus
	Progress   int
	Step       string
	OutputURL  string
	Err        string
	Callback   string
	Transition bool
}

// Hub is a small broadcast bus. Publishing never blocks the pipeline: a
// subscriber whose buffer is full loses the event, and the drop is logged.
type Hub struct {
	mu   sync.RWMutex
	subs []chan Event
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a consumer and returns its event channel.
func (h *Hub) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs = append(h.subs, ch)
	h.mu.Unlock()
	return ch
}

// Publish delivers ev to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[Progress] [%s] subscriber buffer full, dropping event (progress=%d step=%q)",
				ev.JobID, ev.Progress, ev.Step)
		}
	}
}

// Close shuts every subscriber channel. Call only after all publishers
// have stopped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}

// RunStoreUpdater drains events into the job store until ctx is done or
// the channel closes. Store-side invariants (terminal absorption, monotone
// progress) make replayed or late events harmless.
func RunStoreUpdater(ctx context.Context, events <-chan Event, store jobstore.Store) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			u := jobstore.Update{
				Status:   jobstore.StatusPtr(ev.Status),
				Progress: jobstore.IntPtr(ev.Progress),
			}
			if ev.Step != "" {
				u.Step = jobstore.StrPtr(ev.Step)
			}
			if ev.OutputURL != "" {
				u.OutputURL = jobstore.StrPtr(ev.OutputURL)
			}
			if ev.Err != "" {
				u.Error = jobstore.StrPtr(ev.Err)
			}
			if err := store.Update(ctx, ev.JobID, u); err != nil {
				log.Printf("[Progress] [%s] failed to persist event: %v", ev.JobID, err)
			}
		}
	}
}
