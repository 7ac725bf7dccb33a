// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package subupdater provides a worker that keeps the replicated topic
// store up to date with the topics local subscribers care about.
//
// Requests mutate the local subscriptions straight away. Every
// UpdateInterval the worker decides whether to flush: it snapshots the
// subscriptions, encodes the union of their topics and writes it to the
// store at the strongest consistency any request of the batch asked for.
// Only one write is in flight at a time. Requesters that asked for an
// acknowledgement are told once the flush covering their request has
// been replicated; a failed flush is retried on a later tick.
package subupdater

import (
	"context"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"github.com/juju/worker/v4/catacomb"

	"github.com/juju/topicsync/core/consistency"
	"github.com/juju/topicsync/internal/localsubscriptions"
)

// ErrStopped is returned by requests made to a worker that is shutting
// down.
const ErrStopped = errors.ConstError("sub updater stopped")

type state int

const (
	waiting state = iota
	updating
)

func (s state) String() string {
	if s == updating {
		return "updating"
	}
	return "waiting"
}

type request struct {
	req    Request
	sender Acknowledger
}

// waiter is a requester owed an acknowledgement.
type waiter struct {
	req    Request
	sender Acknowledger
}

type updateResult struct {
	snapshot    *localsubscriptions.Reader
	consistency consistency.Level
	err         error
}

// Worker synchronises the local subscriptions into the topic store.
type Worker struct {
	catacomb catacomb.Catacomb
	config   Config
	metrics  *Collector

	requests   chan request
	terminated chan Subscriber
	results    chan updateResult
	reports    chan chan map[string]any

	wg sync.WaitGroup

	// The fields below are only touched by the loop goroutine.
	subs             *localsubscriptions.Subscriptions
	state            state
	changed          bool
	pending          consistency.Level
	awaitUpdate      []waiter
	awaitAcknowledge []waiter
	watched          map[string]chan struct{}
}

// NewWorker starts a worker synchronising subscriptions with the given
// config.
func NewWorker(config Config) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &Worker{
		config:     config,
		metrics:    NewMetricsCollector(),
		requests:   make(chan request),
		terminated: make(chan Subscriber),
		results:    make(chan updateResult),
		reports:    make(chan chan map[string]any),
		subs:       localsubscriptions.New(),
		state:      waiting,
		pending:    consistency.Local(),
		watched:    make(map[string]chan struct{}),
	}
	if err := catacomb.Invoke(catacomb.Plan{
		Name: "sub-updater",
		Site: &w.catacomb,
		Work: w.loop,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}

// Kill is part of the worker.Worker interface.
func (w *Worker) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.catacomb.Wait()
}

// Request hands a request to the worker. Acknowledged requests need a
// sender, which is called once the change has been replicated.
func (w *Worker) Request(req Request, sender Acknowledger) error {
	if err := req.Validate(); err != nil {
		return errors.Trace(err)
	}
	if req.Acknowledge() && sender == nil {
		return errors.NotValidf("acknowledged %s request without sender", req.Kind())
	}
	select {
	case w.requests <- request{req: req, sender: sender}:
		return nil
	case <-w.catacomb.Dying():
		return ErrStopped
	}
}

// Subscribe subscribes the subscriber to the topics. If sender is not nil
// it is acknowledged once the subscription is replicated.
func (w *Worker) Subscribe(subscriber Subscriber, topics []string, wc consistency.Level, sender Acknowledger) error {
	return w.Request(NewSubscribe(subscriber, topics, wc, sender != nil), sender)
}

// Unsubscribe unsubscribes the subscriber from the topics. If sender is
// not nil it is acknowledged once the change is replicated.
func (w *Worker) Unsubscribe(subscriber Subscriber, topics []string, wc consistency.Level, sender Acknowledger) error {
	return w.Request(NewUnsubscribe(subscriber, topics, wc, sender != nil), sender)
}

// RemoveSubscriber drops every topic of the subscriber. If sender is not
// nil it is acknowledged once the change is replicated.
func (w *Worker) RemoveSubscriber(subscriber Subscriber, wc consistency.Level, sender Acknowledger) error {
	return w.Request(NewRemoveSubscriber(subscriber, wc, sender != nil), sender)
}

// Report is part of dependency.Reporter.
func (w *Worker) Report() map[string]any {
	reply := make(chan map[string]any, 1)
	select {
	case w.reports <- reply:
	case <-w.catacomb.Dying():
		return map[string]any{"state": "stopped"}
	}
	select {
	case report := <-reply:
		return report
	case <-w.catacomb.Dying():
		return map[string]any{"state": "stopped"}
	}
}

// Collector returns the worker's metrics.
func (w *Worker) Collector() *Collector {
	return w.metrics
}

func (w *Worker) scopedContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(w.catacomb.Context(context.Background()))
}

func (w *Worker) loop() error {
	if w.config.PrometheusRegisterer != nil {
		_ = w.config.PrometheusRegisterer.Register(w.metrics)
		defer w.config.PrometheusRegisterer.Unregister(w.metrics)
	}

	// Goroutines started by the loop stop when ctx is cancelled, so
	// cancel before waiting for them.
	defer w.wg.Wait()
	ctx, cancel := w.scopedContext()
	defer cancel()

	timer := w.config.Clock.NewTimer(w.config.UpdateInterval)
	defer timer.Stop()

	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()

		case r := <-w.requests:
			w.handleRequest(ctx, r)

		case subscriber := <-w.terminated:
			w.handleTerminated(subscriber)

		case <-timer.Chan():
			w.tick(ctx)
			timer.Reset(w.config.UpdateInterval)

		case result := <-w.results:
			w.handleResult(result)

		case reply := <-w.reports:
			reply <- w.report()
		}
		w.updateGauges()
	}
}

func (w *Worker) handleRequest(ctx context.Context, r request) {
	req := r.req
	id := req.Subscriber().ID()

	var changed bool
	switch req.Kind() {
	case SubscribeKind:
		changed = w.subs.Subscribe(id, req.topics...)
		if w.subs.Contains(id) {
			w.watch(ctx, req.Subscriber())
		}
	case UnsubscribeKind:
		changed = w.subs.Unsubscribe(id, req.topics...)
		if !w.subs.Contains(id) {
			w.unwatch(id)
		}
	case RemoveSubscriberKind:
		changed = w.subs.RemoveSubscriber(id)
		w.unwatch(id)
	default:
		w.config.Logger.Warningf("dropping request of unknown kind %s", req.Kind())
		return
	}
	w.config.Logger.Tracef("%s (changed: %v)", req, changed)

	if changed {
		w.changed = true
	}
	w.pending = consistency.Max(w.pending, req.Consistency())
	if req.Acknowledge() {
		w.awaitUpdate = append(w.awaitUpdate, waiter{req: req, sender: r.sender})
	}
}

func (w *Worker) handleTerminated(subscriber Subscriber) {
	id := subscriber.ID()
	w.config.Logger.Debugf("subscriber %q terminated, removing its topics", id)
	w.unwatch(id)
	if w.subs.RemoveSubscriber(id) {
		w.changed = true
	}
}

// watch starts a goroutine telling the loop when the subscriber dies.
// Subscribers already watched are left alone.
func (w *Worker) watch(ctx context.Context, subscriber Subscriber) {
	id := subscriber.ID()
	if _, ok := w.watched[id]; ok {
		return
	}
	stop := make(chan struct{})
	w.watched[id] = stop

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-subscriber.Dying():
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
		select {
		case w.terminated <- subscriber:
		case <-stop:
		case <-ctx.Done():
		}
	}()
}

func (w *Worker) unwatch(id string) {
	if stop, ok := w.watched[id]; ok {
		close(stop)
		delete(w.watched, id)
	}
}

// tick flushes pending changes, otherwise it runs the force update trial.
// A queued acknowledged request counts as a change: one whose
// mutation left the union alone still needs a flush to be acknowledged,
// otherwise its sender would wait for a forced update.
func (w *Worker) tick(ctx context.Context) {
	if w.state == updating {
		w.config.Logger.Tracef("flush still in flight, skipping tick")
		return
	}
	if !w.changed && len(w.awaitUpdate) == 0 {
		if w.config.Rand.Float64() >= w.config.ForceUpdateProbability {
			w.config.Logger.Tracef("no local changes, skipping tick")
			return
		}
		w.config.Logger.Debugf("forcing update of %d topics", w.subs.TopicCount())
		w.metrics.forceUpdates.Inc()
	}
	w.flush(ctx)
}

// flush starts writing the current subscriptions to the store and moves
// the waiters over to await the write's result.
func (w *Worker) flush(ctx context.Context) {
	var filter []byte
	if !w.subs.IsEmpty() {
		var err error
		filter, err = w.subs.Encode(w.config.BufferFactor, w.config.FalsePositiveRate)
		if err != nil {
			w.config.Logger.Errorf("encoding %d topics: %v", w.subs.TopicCount(), err)
			return
		}
	}
	snapshot := w.subs.Snapshot()
	wc := w.pending

	w.state = updating
	w.changed = false
	w.pending = consistency.Local()
	w.awaitAcknowledge = append(w.awaitAcknowledge, w.awaitUpdate...)
	w.awaitUpdate = nil
	w.metrics.bloomFilterBytes.Set(float64(len(filter)))

	w.config.Logger.Debugf("flushing %d topics (%s) at %s",
		snapshot.TopicCount(), humanize.Bytes(uint64(len(filter))), wc)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		var err error
		if filter == nil {
			err = w.config.Writer.RemoveTopics(ctx, w.config.NodeID, wc)
		} else {
			err = w.config.Writer.UpdateTopics(ctx, w.config.NodeID, filter, wc)
		}
		select {
		case w.results <- updateResult{snapshot: snapshot, consistency: wc, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (w *Worker) handleResult(result updateResult) {
	w.state = waiting
	if result.err != nil {
		w.config.Logger.Warningf("updating topics failed, retrying on next tick: %v", result.err)
		w.metrics.flushes.WithLabelValues(flushFailed).Inc()
		// The waiters held back still need the consistency they asked for.
		w.changed = true
		w.pending = consistency.Max(w.pending, result.consistency)
		return
	}
	w.metrics.flushes.WithLabelValues(flushSucceeded).Inc()

	for _, wt := range w.awaitAcknowledge {
		wt.sender.Acknowledge(Acknowledgement{Request: wt.req})
	}
	w.awaitAcknowledge = nil
	w.config.Consumer.SubscriptionsCommitted(result.snapshot)
}

func (w *Worker) updateGauges() {
	w.metrics.topics.Set(float64(w.subs.TopicCount()))
	w.metrics.awaitUpdate.Set(float64(len(w.awaitUpdate)))
	w.metrics.awaitAcknowledge.Set(float64(len(w.awaitAcknowledge)))
}

func (w *Worker) report() map[string]any {
	return map[string]any{
		"state":             w.state.String(),
		"changed":           w.changed,
		"pending":           w.pending.String(),
		"topics":            w.subs.TopicCount(),
		"subscribers":       w.subs.SubscriberCount(),
		"await-update":      len(w.awaitUpdate),
		"await-acknowledge": len(w.awaitAcknowledge),
	}
}
