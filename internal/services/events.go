package services

import (
	"context"

	"school_asset_server/internal/tenant"
)

// Event announces a committed change so connected clients can refetch.
type Event struct {
	Scope  string   `json:"-"`
	Entity string   `json:"entity"`
	Action string   `json:"action"`
	IDs    []string `json:"ids,omitempty"`
}

// Notifier receives change events. Publish must not block.
type Notifier interface {
	Publish(Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(Event) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func publish(ctx context.Context, n Notifier, entity, action string, ids ...string) {
	n.Publish(Event{Scope: tenant.ScopeFrom(ctx), Entity: entity, Action: action, IDs: ids})
}
