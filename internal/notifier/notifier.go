// Package notifier relays appointment lifecycle events to an external
// automation endpoint. Delivery is best-effort: failures are logged and
// dropped, never retried, and never surfaced to the request that caused them.
package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Lifecycle and reminder event names carried in the `evento` field.
const (
	EventCreated           = "appointment_created"
	EventCancelled         = "appointment_cancelled"
	EventReminderLongLead  = "reminder_long_lead"
	EventReminderShortLead = "reminder_short_lead"
	EventReminderPost      = "reminder_post"
)

// Event is the JSON body posted to the webhook endpoint.
type Event struct {
	Evento    string      `json:"evento"`
	Timestamp string      `json:"timestamp"`
	Datos     interface{} `json:"datos"`
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient overrides the default HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// Notifier posts events to a configured webhook URL. An empty URL disables
// dispatch entirely.
type Notifier struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// New creates a Notifier. url may be empty, which yields a disabled notifier
// whose Dispatch is a no-op.
func New(url string, log zerolog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// Dispatch sends the event in the background. The caller gets no result:
// delivery latency and failures must never reach the request path.
func (n *Notifier) Dispatch(evento string, datos interface{}) {
	if !n.Enabled() {
		return
	}
	go func() {
		if err := n.Send(evento, datos); err != nil {
			n.log.Warn().Err(err).Str("evento", evento).Msg("webhook delivery failed")
		}
	}()
}

// Send delivers the event synchronously. Used by Dispatch and by the reminder
// sweep, which already runs off the request path.
func (n *Notifier) Send(evento string, datos interface{}) error {
	if !n.Enabled() {
		return nil
	}

	payload, err := json.Marshal(Event{
		Evento:    evento,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Datos:     datos,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx response: %d", resp.StatusCode)
	}
	return nil
}
