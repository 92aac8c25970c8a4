package notify

import (
	"context"
	"sync"

	"github.com/jwebster45206/character-monitor/pkg/chat"
)

// Notification is one recorded Notify call.
type Notification struct {
	Category chat.Category
	Flag     string
	Template string
	Data     map[string]any
}

// Recorder is a Notifier for tests: it records every call instead of
// rendering or transporting. Set Err to simulate a failing sink.
type Recorder struct {
	mu    sync.Mutex
	calls []Notification

	Err error
}

// Ensure Recorder implements Notifier
var _ Notifier = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(ctx context.Context, category chat.Category, flag, templateName string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.calls = append(r.calls, Notification{
		Category: category,
		Flag:     flag,
		Template: templateName,
		Data:     data,
	})
	return nil
}

// Calls returns a copy of the recorded notifications.
func (r *Recorder) Calls() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Notification, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset discards recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// ByTemplate returns recorded notifications for one template name.
func (r *Recorder) ByTemplate(templateName string) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Notification
	for _, c := range r.calls {
		if c.Template == templateName {
			out = append(out, c)
		}
	}
	return out
}
