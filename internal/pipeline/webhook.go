package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
	"github.com/ModawnAI/hydra-compose-runpod/internal/progress"
)

const webhookTimeout = 15 * time.Second

// Notifier forwards job status transitions to caller webhooks. Delivery is
// best-effort: failures are logged, never retried, and never affect the
// job itself.
type Notifier struct {
	client *http.Client
}

func NewNotifier() *Notifier {
	return &Notifier{client: &http.Client{Timeout: webhookTimeout}}
}

// Run consumes progress events until ctx is done or the channel closes,
// posting a payload for every status transition that carries a callback.
func (n *Notifier) Run(ctx context.Context, events <-chan progress.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !ev.Transition || ev.Callback == "" {
				continue
			}
			n.deliver(ctx, ev)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, ev progress.Event) {
	payload := models.WebhookPayload{
		JobID:     ev.JobID,
		Status:    ev.Status,
		OutputURL: ev.OutputURL,
		Error:     ev.Err,
		Progress:  ev.Progress,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Webhook] [%s] failed to marshal payload: %v", ev.JobID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", ev.Callback, bytes.NewReader(jsonData))
	if err != nil {
		log.Printf("[Webhook] [%s] invalid callback URL %q: %v", ev.JobID, ev.Callback, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Printf("[Webhook] [%s] delivery to %s failed: %v", ev.JobID, ev.Callback, err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("[Webhook] [%s] %s answered %d", ev.JobID, ev.Callback, resp.StatusCode)
		return
	}
	log.Printf("[Webhook] [%s] notified %s (status=%s)", ev.JobID, ev.Callback, ev.Status)
}
