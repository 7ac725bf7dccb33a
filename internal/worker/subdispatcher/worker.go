// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package subdispatcher provides a worker that follows the committed
// snapshots of the local subscriptions and answers which local
// subscribers a message for a topic should be delivered to.
package subdispatcher

import (
	"sync"

	"github.com/juju/errors"
	"github.com/juju/pubsub/v2"
	"github.com/juju/worker/v4/catacomb"

	"github.com/juju/topicsync/internal/localsubscriptions"
	"github.com/juju/topicsync/pubsub/subscriptions"
)

// Logger represents the logging methods called.
type Logger interface {
	Warningf(message string, args ...any)
	Debugf(message string, args ...any)
}

// Recipients answers which local subscribers care about a topic.
type Recipients interface {
	Recipients(topic string) []string
}

// Config holds the dependencies of a dispatcher worker.
type Config struct {
	Hub    *pubsub.SimpleHub
	Logger Logger
}

// Validate returns an error if the config cannot be used to start a
// worker.
func (config Config) Validate() error {
	if config.Hub == nil {
		return errors.NotValidf("nil Hub")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// Worker keeps the most recently committed snapshot.
type Worker struct {
	catacomb    catacomb.Catacomb
	config      Config
	unsubscribe func()

	mu       sync.Mutex
	snapshot *localsubscriptions.Reader
	received int
}

// NewWorker returns a worker following committed snapshots on the hub.
func NewWorker(config Config) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &Worker{config: config}
	// Subscribe before returning so no snapshot published after
	// construction is missed.
	w.unsubscribe = config.Hub.Subscribe(subscriptions.CommittedTopic, w.onCommitted)
	if err := catacomb.Invoke(catacomb.Plan{
		Name: "sub-dispatcher",
		Site: &w.catacomb,
		Work: w.loop,
	}); err != nil {
		w.unsubscribe()
		return nil, errors.Trace(err)
	}
	return w, nil
}

func (w *Worker) loop() error {
	defer w.unsubscribe()

	<-w.catacomb.Dying()
	return w.catacomb.ErrDying()
}

func (w *Worker) onCommitted(topic string, data interface{}) {
	snapshot, ok := data.(*localsubscriptions.Reader)
	if !ok {
		w.config.Logger.Warningf("unexpected %T on %q", data, topic)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshot = snapshot
	w.received++
	w.config.Logger.Debugf("committed snapshot with %d topics", snapshot.TopicCount())
}

// Kill is part of the worker.Worker interface.
func (w *Worker) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.catacomb.Wait()
}

// Recipients returns the sorted IDs of the local subscribers to the
// topic, as of the last committed snapshot. Before any snapshot was
// committed there are none.
func (w *Worker) Recipients(topic string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.snapshot == nil {
		return nil
	}
	return w.snapshot.Recipients(topic)
}

// Report is part of dependency.Reporter.
func (w *Worker) Report() map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := map[string]any{
		"snapshots": w.received,
	}
	if w.snapshot != nil {
		out["topics"] = w.snapshot.TopicCount()
		out["subscribers"] = len(w.snapshot.SubscriberIDs())
	}
	return out
}
