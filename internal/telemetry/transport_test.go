package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// recordingTransport hands captured events to the test over a channel
// instead of sending them.
type recordingTransport struct {
	events chan *sentry.Event
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{events: make(chan *sentry.Event, 16)}
}

func (t *recordingTransport) Configure(sentry.ClientOptions) {} //nolint:gocritic // interface signature

func (t *recordingTransport) SendEvent(event *sentry.Event) {
	select {
	case t.events <- event:
	default:
	}
}

func (t *recordingTransport) Flush(time.Duration) bool              { return true }
func (t *recordingTransport) FlushWithContext(context.Context) bool { return true }
func (t *recordingTransport) Close()                                {}

// next returns the next captured event, or nil after timeout.
func (t *recordingTransport) next(timeout time.Duration) *sentry.Event {
	select {
	case event := <-t.events:
		return event
	case <-time.After(timeout):
		return nil
	}
}
