package backend

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/apiforge-io/apiforge/core/logger"
)

// notification resources
const (
	resourceCollection = "collection"
	resourceItem       = "item"
	resourceSync       = "sync"
)

// notification change kinds
const (
	changeCreate = "create"
	changeUpdate = "update"
	changeDelete = "delete"
)

// Notification describes one committed change to the builder state.
type Notification struct {
	Resource   string          `json:"resource"`
	Change     string          `json:"change"`
	ResourceID string          `json:"resource_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Notifier receives change notifications after a state mutation has
// been persisted. Implementations must not block the request path for
// long; delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// notify publishes a change notification. Notifications are fired after
// the save succeeded, so a delivery failure is logged and swallowed
// rather than turned into a request error.
func (b *Backend) notify(ctx context.Context, resource, change, resourceID string, payload interface{}) {
	if b.notifier == nil {
		return
	}
	n := Notification{
		Resource:   resource,
		Change:     change,
		ResourceID: resourceID,
		CreatedAt:  time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Error("cannot marshal notification payload")
			return
		}
		n.Payload = data
	}
	if err := b.notifier.Notify(ctx, n); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("resource", resource).Error("cannot deliver notification")
	}
}
