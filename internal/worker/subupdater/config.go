// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package subupdater

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/juju/topicsync/core/consistency"
	"github.com/juju/topicsync/internal/localsubscriptions"
)

// Logger represents the logging methods called.
type Logger interface {
	Errorf(message string, args ...any)
	Warningf(message string, args ...any)
	Infof(message string, args ...any)
	Debugf(message string, args ...any)
	Tracef(message string, args ...any)
}

// TopicsWriter pushes the encoded topics of a node into the replicated
// topic store. Calls block until the write reached the requested
// consistency or failed.
type TopicsWriter interface {
	// UpdateTopics replaces the node's encoded topics.
	UpdateTopics(ctx context.Context, nodeID string, filter []byte, wc consistency.Level) error

	// RemoveTopics drops every topic of the node.
	RemoveTopics(ctx context.Context, nodeID string, wc consistency.Level) error
}

// SnapshotConsumer is told about every snapshot of the local
// subscriptions that was successfully replicated.
type SnapshotConsumer interface {
	SubscriptionsCommitted(*localsubscriptions.Reader)
}

// RandomSource decides force updates. *rand.Rand satisfies it.
type RandomSource interface {
	// Float64 returns a number in [0.0, 1.0).
	Float64() float64
}

// Config holds the dependencies and tuning of a sub updater worker.
type Config struct {
	// NodeID is the key the local topics are stored under.
	NodeID   string
	Writer   TopicsWriter
	Consumer SnapshotConsumer
	Clock    clock.Clock
	Rand     RandomSource
	Logger   Logger

	// UpdateInterval is the time between flush decisions.
	UpdateInterval time.Duration

	// ForceUpdateProbability is the chance that a tick with nothing to
	// flush republishes the topics anyway, repairing replicas that lost
	// them.
	ForceUpdateProbability float64

	// BufferFactor and FalsePositiveRate size the encoded filter.
	BufferFactor      int
	FalsePositiveRate float64

	// PrometheusRegisterer is optional.
	PrometheusRegisterer prometheus.Registerer
}

// Validate returns an error if the config cannot be used to start a
// worker.
func (config Config) Validate() error {
	if config.NodeID == "" {
		return errors.NotValidf("empty NodeID")
	}
	if config.Writer == nil {
		return errors.NotValidf("nil Writer")
	}
	if config.Consumer == nil {
		return errors.NotValidf("nil Consumer")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Rand == nil {
		return errors.NotValidf("nil Rand")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.UpdateInterval <= 0 {
		return errors.NotValidf("non-positive UpdateInterval %v", config.UpdateInterval)
	}
	if config.ForceUpdateProbability < 0 || config.ForceUpdateProbability > 1 {
		return errors.NotValidf("ForceUpdateProbability %v", config.ForceUpdateProbability)
	}
	if config.BufferFactor < 1 {
		return errors.NotValidf("BufferFactor %d", config.BufferFactor)
	}
	if config.FalsePositiveRate <= 0 || config.FalsePositiveRate >= 1 {
		return errors.NotValidf("FalsePositiveRate %v", config.FalsePositiveRate)
	}
	return nil
}
