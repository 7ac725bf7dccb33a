// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package topicstore

import (
	"sync"

	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/juju/topicsync/internal/bloomfilter"
)

const (
	// ErrUnreachable is returned when writing to or reading from a replica
	// that has been marked unreachable.
	ErrUnreachable = errors.ConstError("replica unreachable")

	// ErrNotEnoughReplicas is returned when a write cannot reach the
	// number of replicas its consistency level requires.
	ErrNotEnoughReplicas = errors.ConstError("not enough replicas")
)

// entry is the value a replica keeps for a single node. Removals are
// kept as tombstones so a delayed older write cannot resurrect them.
type entry struct {
	filter  []byte
	version uint64
	removed bool
}

// Replica holds one copy of the node ID to topic filter map. It is safe
// for concurrent use.
type Replica struct {
	name string

	mu        sync.Mutex
	reachable bool
	entries   map[string]entry
}

// NewReplica returns an empty, reachable replica.
func NewReplica(name string) *Replica {
	return &Replica{
		name:      name,
		reachable: true,
		entries:   make(map[string]entry),
	}
}

// Name returns the name the replica was created with.
func (r *Replica) Name() string {
	return r.name
}

// SetReachable marks the replica as reachable or not. Unreachable
// replicas reject writes and reads.
func (r *Replica) SetReachable(reachable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reachable = reachable
}

// apply decodes a replication record and stores it unless a newer
// version for the node is already held.
func (r *Replica) apply(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reachable {
		return errors.Annotatef(ErrUnreachable, "replica %q", r.name)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return errors.Annotatef(err, "replica %q", r.name)
	}
	if current, ok := r.entries[rec.NodeID]; ok && current.version >= rec.Version {
		return nil
	}
	r.entries[rec.NodeID] = entry{
		filter:  rec.Filter,
		version: rec.Version,
		removed: rec.Removed,
	}
	return nil
}

// Filter returns the encoded filter stored for the node.
func (r *Replica) Filter(nodeID string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reachable {
		return nil, errors.Annotatef(ErrUnreachable, "replica %q", r.name)
	}
	e, ok := r.entries[nodeID]
	if !ok || e.removed {
		return nil, errors.NotFoundf("topics for node %q", nodeID)
	}
	return append([]byte(nil), e.filter...), nil
}

// Filters returns a copy of every live node's encoded filter.
func (r *Replica) Filters() (map[string][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reachable {
		return nil, errors.Annotatef(ErrUnreachable, "replica %q", r.name)
	}
	result := make(map[string][]byte, len(r.entries))
	for nodeID, e := range r.entries {
		if e.removed {
			continue
		}
		result[nodeID] = append([]byte(nil), e.filter...)
	}
	return result, nil
}

// MayContain reports whether some subscriber on the node may care about
// the topic. False positives are possible, false negatives are not.
func (r *Replica) MayContain(nodeID, topic string) (bool, error) {
	data, err := r.Filter(nodeID)
	if errors.Is(err, errors.NotFound) {
		return false, nil
	} else if err != nil {
		return false, errors.Trace(err)
	}
	filter, err := bloomfilter.Decode(data)
	if err != nil {
		return false, errors.Annotatef(err, "node %q", nodeID)
	}
	return filter.MayContain(topic), nil
}

// NodesFor returns the sorted IDs of the nodes that may have subscribers
// for the topic.
func (r *Replica) NodesFor(topic string) ([]string, error) {
	filters, err := r.Filters()
	if err != nil {
		return nil, errors.Trace(err)
	}
	nodes := set.NewStrings()
	for nodeID, data := range filters {
		filter, err := bloomfilter.Decode(data)
		if err != nil {
			return nil, errors.Annotatef(err, "node %q", nodeID)
		}
		if filter.MayContain(topic) {
			nodes.Add(nodeID)
		}
	}
	return nodes.SortedValues(), nil
}
