// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package topicstore provides a small replicated store mapping node IDs
// to the encoded set of topics their local subscribers care about.
package topicstore

import (
	"context"
	"sync"

	"github.com/juju/errors"

	"github.com/juju/topicsync/core/consistency"
)

// Group writes to a local replica and its peers, returning once as many
// replicas as the requested consistency level demands have accepted the
// write. The remaining peers are still written in the background.
type Group struct {
	local *Replica
	peers []*Replica

	mu       sync.Mutex
	versions map[string]uint64
}

// NewGroup returns a group writing through local to the given peers.
func NewGroup(local *Replica, peers ...*Replica) *Group {
	return &Group{
		local:    local,
		peers:    peers,
		versions: make(map[string]uint64),
	}
}

// Local returns the replica the group reads from.
func (g *Group) Local() *Replica {
	return g.local
}

// Size returns the number of replicas in the group, local included.
func (g *Group) Size() int {
	return len(g.peers) + 1
}

// UpdateTopics replaces the encoded topics of the node.
func (g *Group) UpdateTopics(ctx context.Context, nodeID string, filter []byte, wc consistency.Level) error {
	rec := record{NodeID: nodeID, Filter: filter}
	return errors.Annotatef(g.write(ctx, rec, wc), "updating topics of %q", nodeID)
}

// RemoveTopics drops every topic of the node.
func (g *Group) RemoveTopics(ctx context.Context, nodeID string, wc consistency.Level) error {
	rec := record{NodeID: nodeID, Removed: true}
	return errors.Annotatef(g.write(ctx, rec, wc), "removing topics of %q", nodeID)
}

func (g *Group) nextVersion(nodeID string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.versions[nodeID]++
	return g.versions[nodeID]
}

func (g *Group) write(ctx context.Context, rec record, wc consistency.Level) error {
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	rec.Version = g.nextVersion(rec.NodeID)
	data, err := encodeRecord(rec)
	if err != nil {
		return errors.Trace(err)
	}

	total := g.Size()
	required := wc.Required(total)

	// The channel is buffered so peers finishing after we return never
	// block.
	results := make(chan error, len(g.peers))
	for _, peer := range g.peers {
		go func(peer *Replica) {
			results <- peer.apply(data)
		}(peer)
	}

	var acked, failed int
	if err := g.local.apply(data); err != nil {
		failed++
	} else {
		acked++
	}
	for acked < required {
		if total-failed < required {
			return errors.Annotatef(ErrNotEnoughReplicas,
				"%s needs %d of %d, %d failed", wc, required, total, failed)
		}
		select {
		case err := <-results:
			if err != nil {
				failed++
				continue
			}
			acked++
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		}
	}
	return nil
}
