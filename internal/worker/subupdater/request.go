// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package subupdater

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/juju/topicsync/core/consistency"
)

// Subscriber is a local party interested in topics.
type Subscriber interface {
	// ID identifies the subscriber. Two subscribers with the same ID are
	// the same subscriber.
	ID() string

	// Dying is closed when the subscriber terminates. Its topics are
	// then dropped without an explicit unsubscribe.
	Dying() <-chan struct{}
}

// Kind distinguishes the requests the worker accepts.
type Kind int

const (
	SubscribeKind Kind = iota + 1
	UnsubscribeKind
	RemoveSubscriberKind
)

func (k Kind) String() string {
	switch k {
	case SubscribeKind:
		return "subscribe"
	case UnsubscribeKind:
		return "unsubscribe"
	case RemoveSubscriberKind:
		return "remove-subscriber"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Request changes the local subscriptions. Requests are immutable once
// built.
type Request struct {
	kind        Kind
	subscriber  Subscriber
	topics      []string
	consistency consistency.Level
	acknowledge bool
}

// NewSubscribe returns a request subscribing the subscriber to the topics.
func NewSubscribe(subscriber Subscriber, topics []string, wc consistency.Level, acknowledge bool) Request {
	return newRequest(SubscribeKind, subscriber, topics, wc, acknowledge)
}

// NewUnsubscribe returns a request unsubscribing the subscriber from the
// topics.
func NewUnsubscribe(subscriber Subscriber, topics []string, wc consistency.Level, acknowledge bool) Request {
	return newRequest(UnsubscribeKind, subscriber, topics, wc, acknowledge)
}

// NewRemoveSubscriber returns a request dropping every topic of the
// subscriber.
func NewRemoveSubscriber(subscriber Subscriber, wc consistency.Level, acknowledge bool) Request {
	return newRequest(RemoveSubscriberKind, subscriber, nil, wc, acknowledge)
}

func newRequest(kind Kind, subscriber Subscriber, topics []string, wc consistency.Level, acknowledge bool) Request {
	return Request{
		kind:        kind,
		subscriber:  subscriber,
		topics:      append([]string(nil), topics...),
		consistency: wc,
		acknowledge: acknowledge,
	}
}

func (r Request) Kind() Kind {
	return r.kind
}

func (r Request) Subscriber() Subscriber {
	return r.subscriber
}

// Topics returns a copy of the request's topics.
func (r Request) Topics() []string {
	return append([]string(nil), r.topics...)
}

func (r Request) Consistency() consistency.Level {
	return r.consistency
}

// Acknowledge reports whether the requester wants to be told once the
// change has been replicated.
func (r Request) Acknowledge() bool {
	return r.acknowledge
}

// Validate checks the request can be handled.
func (r Request) Validate() error {
	switch r.kind {
	case SubscribeKind, UnsubscribeKind, RemoveSubscriberKind:
	default:
		return errors.NotValidf("request kind %s", r.kind)
	}
	if r.subscriber == nil {
		return errors.NotValidf("%s request with nil subscriber", r.kind)
	}
	return nil
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s %v at %s", r.kind, r.subscriber.ID(), r.topics, r.consistency)
}

// Acknowledgement tells a requester that its request was replicated.
type Acknowledgement struct {
	Request Request
}

// Acknowledger receives acknowledgements. It is called from the worker's
// loop and must not block.
type Acknowledger interface {
	Acknowledge(Acknowledgement)
}

// AckFunc adapts a function to the Acknowledger interface.
type AckFunc func(Acknowledgement)

// Acknowledge is part of the Acknowledger interface.
func (f AckFunc) Acknowledge(ack Acknowledgement) {
	f(ack)
}
