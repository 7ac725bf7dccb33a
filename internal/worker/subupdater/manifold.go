// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package subupdater

import (
	"context"
	"math/rand"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/pubsub/v2"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/dependency"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/juju/topicsync/pubsub/subscriptions"
)

// ManifoldConfig defines the names of the manifolds on which a Manifold
// will depend, and the tuning handed to the worker.
type ManifoldConfig struct {
	TopicStoreName string
	HubName        string

	NodeID                 string
	UpdateInterval         time.Duration
	ForceUpdateProbability float64
	BufferFactor           int
	FalsePositiveRate      float64

	Clock                clock.Clock
	Logger               Logger
	PrometheusRegisterer prometheus.Registerer
	NewWorker            func(Config) (worker.Worker, error)
}

// Validate validates the manifold configuration.
func (config ManifoldConfig) Validate() error {
	if config.TopicStoreName == "" {
		return errors.NotValidf("empty TopicStoreName")
	}
	if config.HubName == "" {
		return errors.NotValidf("empty HubName")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.NewWorker == nil {
		return errors.NotValidf("nil NewWorker")
	}
	return nil
}

// Manifold returns a dependency manifold that runs a sub updater worker
// writing to the topic store resource and announcing snapshots on the
// hub resource.
func Manifold(config ManifoldConfig) dependency.Manifold {
	return dependency.Manifold{
		Inputs: []string{
			config.TopicStoreName,
			config.HubName,
		},
		Start: func(ctx context.Context, getter dependency.Getter) (worker.Worker, error) {
			if err := config.Validate(); err != nil {
				return nil, errors.Trace(err)
			}

			var writer TopicsWriter
			if err := getter.Get(config.TopicStoreName, &writer); err != nil {
				return nil, errors.Trace(err)
			}
			var hub *pubsub.SimpleHub
			if err := getter.Get(config.HubName, &hub); err != nil {
				return nil, errors.Trace(err)
			}

			w, err := config.NewWorker(Config{
				NodeID:                 config.NodeID,
				Writer:                 writer,
				Consumer:               subscriptions.NewPublisher(hub),
				Clock:                  config.Clock,
				Rand:                   rand.New(rand.NewSource(config.Clock.Now().UnixNano())),
				Logger:                 config.Logger,
				UpdateInterval:         config.UpdateInterval,
				ForceUpdateProbability: config.ForceUpdateProbability,
				BufferFactor:           config.BufferFactor,
				FalsePositiveRate:      config.FalsePositiveRate,
				PrometheusRegisterer:   config.PrometheusRegisterer,
			})
			if err != nil {
				return nil, errors.Trace(err)
			}
			return w, nil
		},
	}
}

// NewWorkerFunc adapts NewWorker to ManifoldConfig.NewWorker.
func NewWorkerFunc(config Config) (worker.Worker, error) {
	w, err := NewWorker(config)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}
