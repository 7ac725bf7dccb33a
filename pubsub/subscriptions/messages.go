// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package subscriptions defines the hub topic on which replicated
// snapshots of the local subscriptions are announced.
package subscriptions

import (
	"github.com/juju/pubsub/v2"

	"github.com/juju/topicsync/internal/localsubscriptions"
)

// CommittedTopic is published with a *localsubscriptions.Reader each time
// the local subscriptions were replicated to the topic store.
const CommittedTopic = "subscriptions.committed"

// Publisher announces committed snapshots on a hub.
type Publisher struct {
	hub *pubsub.SimpleHub
}

// NewPublisher returns a Publisher writing to the hub.
func NewPublisher(hub *pubsub.SimpleHub) *Publisher {
	return &Publisher{hub: hub}
}

// SubscriptionsCommitted publishes the snapshot without waiting for the
// hub's subscribers.
func (p *Publisher) SubscriptionsCommitted(snapshot *localsubscriptions.Reader) {
	_ = p.hub.Publish(CommittedTopic, snapshot)
}
