// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package subdispatcher

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/pubsub/v2"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/dependency"
)

// ManifoldConfig defines the names of the manifolds on which a Manifold
// will depend.
type ManifoldConfig struct {
	HubName string
	Logger  Logger
}

// Validate validates the manifold configuration.
func (config ManifoldConfig) Validate() error {
	if config.HubName == "" {
		return errors.NotValidf("empty HubName")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// Manifold returns a dependency manifold that runs a dispatcher worker
// and exposes it as Recipients.
func Manifold(config ManifoldConfig) dependency.Manifold {
	return dependency.Manifold{
		Inputs: []string{config.HubName},
		Start: func(ctx context.Context, getter dependency.Getter) (worker.Worker, error) {
			if err := config.Validate(); err != nil {
				return nil, errors.Trace(err)
			}
			var hub *pubsub.SimpleHub
			if err := getter.Get(config.HubName, &hub); err != nil {
				return nil, errors.Trace(err)
			}
			w, err := NewWorker(Config{
				Hub:    hub,
				Logger: config.Logger,
			})
			if err != nil {
				return nil, errors.Trace(err)
			}
			return w, nil
		},
		Output: outputFunc,
	}
}

func outputFunc(in worker.Worker, out any) error {
	w, ok := in.(*Worker)
	if !ok {
		return errors.Errorf("expected *subdispatcher.Worker, got %T", in)
	}
	switch out := out.(type) {
	case *Recipients:
		*out = w
	default:
		return errors.Errorf("expected *subdispatcher.Recipients, got %T", out)
	}
	return nil
}
