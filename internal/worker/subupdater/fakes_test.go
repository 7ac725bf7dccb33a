// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package subupdater_test

import (
	"context"
	"sync"
	"time"

	gc "gopkg.in/check.v1"

	"github.com/juju/topicsync/core/consistency"
	"github.com/juju/topicsync/internal/localsubscriptions"
	"github.com/juju/topicsync/internal/testing"
	"github.com/juju/topicsync/internal/worker/subupdater"
)

type fakeSubscriber struct {
	id    string
	dying chan struct{}
	once  sync.Once
}

func newSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id, dying: make(chan struct{})}
}

func (s *fakeSubscriber) ID() string {
	return s.id
}

func (s *fakeSubscriber) Dying() <-chan struct{} {
	return s.dying
}

func (s *fakeSubscriber) terminate() {
	s.once.Do(func() { close(s.dying) })
}

// writeCall is a single call made to the fake writer. The call blocks
// until the test sends its outcome on result.
type writeCall struct {
	nodeID string
	filter []byte
	remove bool
	wc     consistency.Level
	result chan error
}

type fakeWriter struct {
	calls chan writeCall
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{calls: make(chan writeCall)}
}

func (f *fakeWriter) UpdateTopics(ctx context.Context, nodeID string, filter []byte, wc consistency.Level) error {
	return f.call(ctx, writeCall{nodeID: nodeID, filter: filter, wc: wc})
}

func (f *fakeWriter) RemoveTopics(ctx context.Context, nodeID string, wc consistency.Level) error {
	return f.call(ctx, writeCall{nodeID: nodeID, remove: true, wc: wc})
}

func (f *fakeWriter) call(ctx context.Context, call writeCall) error {
	call.result = make(chan error, 1)
	select {
	case f.calls <- call:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-call.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeWriter) expectCall(c *gc.C) writeCall {
	select {
	case call := <-f.calls:
		return call
	case <-time.After(testing.LongWait):
		c.Fatalf("timed out waiting for topic store write")
	}
	panic("unreachable")
}

func (f *fakeWriter) expectNoCall(c *gc.C) {
	select {
	case call := <-f.calls:
		c.Fatalf("unexpected topic store write at %s", call.wc)
	case <-time.After(testing.ShortWait):
	}
}

type fakeConsumer struct {
	snapshots chan *localsubscriptions.Reader
}

func newFakeConsumer() *fakeConsumer {
	return &fakeConsumer{snapshots: make(chan *localsubscriptions.Reader, 10)}
}

func (f *fakeConsumer) SubscriptionsCommitted(snapshot *localsubscriptions.Reader) {
	f.snapshots <- snapshot
}

func (f *fakeConsumer) expectSnapshot(c *gc.C) *localsubscriptions.Reader {
	select {
	case snapshot := <-f.snapshots:
		return snapshot
	case <-time.After(testing.LongWait):
		c.Fatalf("timed out waiting for committed snapshot")
	}
	panic("unreachable")
}

func (f *fakeConsumer) expectNoSnapshot(c *gc.C) {
	select {
	case <-f.snapshots:
		c.Fatalf("unexpected committed snapshot")
	case <-time.After(testing.ShortWait):
	}
}

// fixedRand always returns the same value.
type fixedRand float64

func (r fixedRand) Float64() float64 {
	return float64(r)
}

type ackRecorder struct {
	acks chan subupdater.Acknowledgement
}

func newAckRecorder() *ackRecorder {
	return &ackRecorder{acks: make(chan subupdater.Acknowledgement, 10)}
}

func (r *ackRecorder) sender() subupdater.Acknowledger {
	return subupdater.AckFunc(func(ack subupdater.Acknowledgement) {
		r.acks <- ack
	})
}

func (r *ackRecorder) expectAck(c *gc.C) subupdater.Acknowledgement {
	select {
	case ack := <-r.acks:
		return ack
	case <-time.After(testing.LongWait):
		c.Fatalf("timed out waiting for acknowledgement")
	}
	panic("unreachable")
}

func (r *ackRecorder) expectNoAck(c *gc.C) {
	select {
	case ack := <-r.acks:
		c.Fatalf("unexpected acknowledgement of %s", ack.Request.Kind())
	case <-time.After(testing.ShortWait):
	}
}
