// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// topicsyncd runs the subscription synchroniser against an in-memory
// replicated topic store and serves its metrics.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"
	"github.com/juju/pubsub/v2"
	"github.com/juju/worker/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juju/topicsync/internal/pubsubconfig"
	"github.com/juju/topicsync/internal/topicstore"
	"github.com/juju/topicsync/internal/worker/subdispatcher"
	"github.com/juju/topicsync/internal/worker/subupdater"
	"github.com/juju/topicsync/pubsub/subscriptions"
)

var logger = loggo.GetLogger("topicsync.cmd.topicsyncd")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := parseArgs(os.Args[1:])
	if err == gnuflag.ErrHelp {
		os.Exit(0)
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR %v\n", err)
		os.Exit(2)
	}
	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath     string
	metricsAddress string
	loggingConfig  string
}

func parseArgs(args []string) (options, error) {
	var opts options
	flags := gnuflag.NewFlagSet("topicsyncd", gnuflag.ContinueOnError)
	flags.StringVar(&opts.configPath, "config", "/etc/topicsync/config.yaml", "path to the YAML config")
	flags.StringVar(&opts.metricsAddress, "metrics", ":9130", "address to serve /metrics on, empty to disable")
	flags.StringVar(&opts.loggingConfig, "logging-config", "<root>=INFO", "loggo logging configuration")
	if err := flags.Parse(true, args); err != nil {
		return options{}, err
	}
	if flags.NArg() > 0 {
		return options{}, errors.Errorf("unrecognised arguments %q", flags.Args())
	}
	return opts, nil
}

// newReplicaGroup returns a group of count in-memory replicas, the first
// being local.
func newReplicaGroup(count int) *topicstore.Group {
	local := topicstore.NewReplica("replica-0")
	peers := make([]*topicstore.Replica, 0, count-1)
	for i := 1; i < count; i++ {
		peers = append(peers, topicstore.NewReplica(fmt.Sprintf("replica-%d", i)))
	}
	return topicstore.NewGroup(local, peers...)
}

// daemonSubscriber stands for the topics listed in the config. Each run
// gets a fresh ID so a restart is a new subscriber.
type daemonSubscriber struct {
	id    string
	dying chan struct{}
}

func (s *daemonSubscriber) ID() string             { return s.id }
func (s *daemonSubscriber) Dying() <-chan struct{} { return s.dying }

func run(ctx context.Context, opts options) error {
	if err := loggo.ConfigureLoggers(opts.loggingConfig); err != nil {
		return errors.Annotate(err, "configuring logging")
	}
	config, err := pubsubconfig.Read(opts.configPath)
	if err != nil {
		return errors.Trace(err)
	}

	registry := prometheus.NewRegistry()
	group := newReplicaGroup(config.Replicas)
	hub := pubsub.NewSimpleHub(&pubsub.SimpleHubConfig{
		Logger: loggo.GetLogger("topicsync.hub"),
	})

	dispatcher, err := subdispatcher.NewWorker(subdispatcher.Config{
		Hub:    hub,
		Logger: loggo.GetLogger("topicsync.worker.subdispatcher"),
	})
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = worker.Stop(dispatcher) }()

	updater, err := subupdater.NewWorker(subupdater.Config{
		NodeID:                 config.NodeID(),
		Writer:                 group,
		Consumer:               subscriptions.NewPublisher(hub),
		Clock:                  clock.WallClock,
		Rand:                   rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:                 loggo.GetLogger("topicsync.worker.subupdater"),
		UpdateInterval:         config.UpdateInterval,
		ForceUpdateProbability: config.ForceUpdateProbability,
		BufferFactor:           config.BufferFactor,
		FalsePositiveRate:      config.FalsePositiveRate,
		PrometheusRegisterer:   registry,
	})
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = worker.Stop(updater) }()

	if opts.metricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: opts.metricsAddress, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("serving metrics: %v", err)
			}
		}()
		defer func() { _ = server.Shutdown(context.Background()) }()
	}

	acked := make(chan struct{})
	subscriber := &daemonSubscriber{
		id:    "topicsyncd-" + uuid.NewString(),
		dying: make(chan struct{}),
	}
	if len(config.Topics) > 0 {
		err := updater.Subscribe(subscriber, config.Topics, config.WriteConsistency,
			subupdater.AckFunc(func(subupdater.Acknowledgement) { close(acked) }))
		if err != nil {
			return errors.Trace(err)
		}
	}

	died := make(chan error, 1)
	go func() { died <- updater.Wait() }()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("shutting down")
			return nil
		case err := <-died:
			return errors.Annotate(err, "sub updater stopped")
		case <-acked:
			acked = nil
			logTopics(config, group, dispatcher)
		}
	}
}

func logTopics(config pubsubconfig.Config, group *topicstore.Group, recipients subdispatcher.Recipients) {
	for _, topic := range config.Topics {
		nodes, err := group.Local().NodesFor(topic)
		if err != nil {
			logger.Warningf("looking up nodes for %q: %v", topic, err)
			continue
		}
		logger.Infof("topic %q: nodes %v, local subscribers %v", topic, nodes, recipients.Recipients(topic))
	}
}
