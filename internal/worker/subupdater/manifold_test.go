// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package subupdater_test

import (
	"context"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/pubsub/v2"
	jujutesting "github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/dependency"
	dependencytesting "github.com/juju/worker/v4/dependency/testing"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	"github.com/juju/topicsync/internal/testing"
	"github.com/juju/topicsync/internal/worker/subupdater"
)

type ManifoldSuite struct {
	jujutesting.IsolationSuite

	writer *fakeWriter
	hub    *pubsub.SimpleHub
	config subupdater.Config
}

var _ = gc.Suite(&ManifoldSuite{})

func (s *ManifoldSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.writer = newFakeWriter()
	s.hub = pubsub.NewSimpleHub(&pubsub.SimpleHubConfig{
		Logger: loggo.GetLogger("test"),
	})
	s.config = subupdater.Config{}
}

func (s *ManifoldSuite) manifoldConfig(c *gc.C) subupdater.ManifoldConfig {
	return subupdater.ManifoldConfig{
		TopicStoreName:         "topic-store",
		HubName:                "hub",
		NodeID:                 "node-0",
		UpdateInterval:         time.Second,
		ForceUpdateProbability: 0.01,
		BufferFactor:           2,
		FalsePositiveRate:      0.01,
		Clock:                  testclock.NewClock(time.Now()),
		Logger:                 testing.NewCheckLogger(c),
		NewWorker: func(config subupdater.Config) (worker.Worker, error) {
			s.config = config
			return workertest.NewErrorWorker(nil), nil
		},
	}
}

func (s *ManifoldSuite) newGetter() dependency.Getter {
	resources := map[string]any{
		"topic-store": s.writer,
		"hub":         s.hub,
	}
	return dependencytesting.StubGetter(resources)
}

func (s *ManifoldSuite) TestValidateConfig(c *gc.C) {
	cfg := s.manifoldConfig(c)
	c.Check(cfg.Validate(), jc.ErrorIsNil)

	cfg = s.manifoldConfig(c)
	cfg.TopicStoreName = ""
	c.Check(errors.Is(cfg.Validate(), errors.NotValid), jc.IsTrue)

	cfg = s.manifoldConfig(c)
	cfg.HubName = ""
	c.Check(errors.Is(cfg.Validate(), errors.NotValid), jc.IsTrue)

	cfg = s.manifoldConfig(c)
	cfg.Clock = nil
	c.Check(errors.Is(cfg.Validate(), errors.NotValid), jc.IsTrue)

	cfg = s.manifoldConfig(c)
	cfg.Logger = nil
	c.Check(errors.Is(cfg.Validate(), errors.NotValid), jc.IsTrue)

	cfg = s.manifoldConfig(c)
	cfg.NewWorker = nil
	c.Check(errors.Is(cfg.Validate(), errors.NotValid), jc.IsTrue)
}

func (s *ManifoldSuite) TestInputs(c *gc.C) {
	c.Check(subupdater.Manifold(s.manifoldConfig(c)).Inputs, jc.SameContents, []string{"topic-store", "hub"})
}

func (s *ManifoldSuite) TestStart(c *gc.C) {
	w, err := subupdater.Manifold(s.manifoldConfig(c)).Start(context.Background(), s.newGetter())
	c.Assert(err, jc.ErrorIsNil)
	workertest.CleanKill(c, w)

	c.Check(s.config.NodeID, gc.Equals, "node-0")
	c.Check(s.config.Writer, gc.Equals, s.writer)
	c.Check(s.config.Consumer, gc.NotNil)
	c.Check(s.config.Rand, gc.NotNil)
	c.Check(s.config.UpdateInterval, gc.Equals, time.Second)
	c.Check(s.config.Validate(), jc.ErrorIsNil)
}

func (s *ManifoldSuite) TestStartMissingTopicStore(c *gc.C) {
	getter := dependencytesting.StubGetter(map[string]any{
		"topic-store": dependency.ErrMissing,
		"hub":         s.hub,
	})
	_, err := subupdater.Manifold(s.manifoldConfig(c)).Start(context.Background(), getter)
	c.Check(errors.Is(err, dependency.ErrMissing), jc.IsTrue)
}

func (s *ManifoldSuite) TestStartsRealWorker(c *gc.C) {
	cfg := s.manifoldConfig(c)
	cfg.NewWorker = subupdater.NewWorkerFunc
	w, err := subupdater.Manifold(cfg).Start(context.Background(), s.newGetter())
	c.Assert(err, jc.ErrorIsNil)
	workertest.CleanKill(c, w)
}
