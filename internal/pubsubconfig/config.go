// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package pubsubconfig reads the settings of the topic synchronisation
// daemon.
package pubsubconfig

import (
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/juju/names/v5"
	"github.com/juju/schema"
	"gopkg.in/yaml.v2"

	"github.com/juju/topicsync/core/consistency"
	"github.com/juju/topicsync/internal/bloomfilter"
)

const (
	NodeKey                   = "node"
	UpdateIntervalKey         = "update-interval"
	ForceUpdateProbabilityKey = "force-update-probability"
	BufferFactorKey           = "buffer-factor"
	FalsePositiveRateKey      = "false-positive-rate"
	WriteConsistencyKey       = "write-consistency"
	ReplicasKey               = "replicas"
	TopicsKey                 = "topics"
)

const (
	DefaultUpdateInterval         = 100 * time.Millisecond
	DefaultForceUpdateProbability = 0.01
	DefaultBufferFactor           = 2
	DefaultFalsePositiveRate      = bloomfilter.DefaultFalsePositiveRate
	DefaultReplicas               = 3
)

var configChecker = schema.FieldMap(schema.Fields{
	NodeKey:                   schema.NonEmptyString(NodeKey),
	UpdateIntervalKey:         schema.TimeDurationString(),
	ForceUpdateProbabilityKey: schema.OneOf(schema.Float(), schema.ForceInt()),
	BufferFactorKey:           schema.ForceInt(),
	FalsePositiveRateKey:      schema.OneOf(schema.Float(), schema.ForceInt()),
	WriteConsistencyKey:       schema.String(),
	ReplicasKey:               schema.ForceInt(),
	TopicsKey:                 schema.List(schema.String()),
}, schema.Defaults{
	UpdateIntervalKey:         schema.Omit,
	ForceUpdateProbabilityKey: schema.Omit,
	BufferFactorKey:           schema.Omit,
	FalsePositiveRateKey:      schema.Omit,
	WriteConsistencyKey:       schema.Omit,
	ReplicasKey:               schema.Omit,
	TopicsKey:                 schema.Omit,
})

// Config holds the daemon settings.
type Config struct {
	// Node identifies this node in the topic store.
	Node names.Tag

	UpdateInterval         time.Duration
	ForceUpdateProbability float64
	BufferFactor           int
	FalsePositiveRate      float64

	// WriteConsistency is used for the daemon's own subscriptions.
	WriteConsistency consistency.Level

	// Replicas is the size of the in-memory topic store group.
	Replicas int

	// Topics are subscribed to at start up. The file is read as YAML 1.1,
	// so topics such as y or no must be quoted or they arrive as
	// booleans and are rejected.
	Topics []string
}

// Read loads the config from a YAML file.
func Read(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Annotatef(err, "reading %q", path)
	}
	config, err := Parse(data)
	return config, errors.Annotatef(err, "parsing %q", path)
}

// Parse loads the config from YAML.
func Parse(data []byte) (Config, error) {
	var attrs map[string]interface{}
	if err := yaml.Unmarshal(data, &attrs); err != nil {
		return Config{}, errors.Trace(err)
	}
	return New(attrs)
}

// New builds a config from attributes, filling in defaults for anything
// missing, and validates it.
func New(attrs map[string]interface{}) (Config, error) {
	coerced, err := configChecker.Coerce(attrs, nil)
	if err != nil {
		return Config{}, errors.NewNotValid(err, "invalid config")
	}
	values := coerced.(map[string]interface{})

	config := Config{
		UpdateInterval:         DefaultUpdateInterval,
		ForceUpdateProbability: DefaultForceUpdateProbability,
		BufferFactor:           DefaultBufferFactor,
		FalsePositiveRate:      DefaultFalsePositiveRate,
		WriteConsistency:       consistency.Local(),
		Replicas:               DefaultReplicas,
	}

	tag, err := names.ParseTag(values[NodeKey].(string))
	if err != nil {
		return Config{}, errors.NewNotValid(err, NodeKey)
	}
	config.Node = tag

	if v, ok := values[UpdateIntervalKey]; ok {
		// The checker only vets the string form.
		d, err := time.ParseDuration(v.(string))
		if err != nil {
			return Config{}, errors.NewNotValid(err, UpdateIntervalKey)
		}
		config.UpdateInterval = d
	}
	if v, ok := values[ForceUpdateProbabilityKey]; ok {
		config.ForceUpdateProbability = toFloat(v)
	}
	if v, ok := values[BufferFactorKey]; ok {
		config.BufferFactor = v.(int)
	}
	if v, ok := values[FalsePositiveRateKey]; ok {
		config.FalsePositiveRate = toFloat(v)
	}
	if v, ok := values[WriteConsistencyKey]; ok {
		wc, err := consistency.Parse(v.(string))
		if err != nil {
			return Config{}, errors.Trace(err)
		}
		config.WriteConsistency = wc
	}
	if v, ok := values[ReplicasKey]; ok {
		config.Replicas = v.(int)
	}
	if v, ok := values[TopicsKey]; ok {
		for _, topic := range v.([]interface{}) {
			config.Topics = append(config.Topics, topic.(string))
		}
	}

	if err := config.Validate(); err != nil {
		return Config{}, errors.Trace(err)
	}
	return config, nil
}

func toFloat(v interface{}) float64 {
	switch v := v.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return v.(float64)
}

// Validate checks the values are within range.
func (c Config) Validate() error {
	if c.Node == nil {
		return errors.NotValidf("missing %s", NodeKey)
	}
	if c.UpdateInterval <= 0 {
		return errors.NotValidf("%s %v", UpdateIntervalKey, c.UpdateInterval)
	}
	if c.ForceUpdateProbability < 0 || c.ForceUpdateProbability > 1 {
		return errors.NotValidf("%s %v", ForceUpdateProbabilityKey, c.ForceUpdateProbability)
	}
	if c.BufferFactor < 1 {
		return errors.NotValidf("%s %d", BufferFactorKey, c.BufferFactor)
	}
	if c.FalsePositiveRate <= 0 || c.FalsePositiveRate >= 1 {
		return errors.NotValidf("%s %v", FalsePositiveRateKey, c.FalsePositiveRate)
	}
	if c.Replicas < 1 {
		return errors.NotValidf("%s %d", ReplicasKey, c.Replicas)
	}
	return nil
}

// NodeID is the key this node's topics are stored under.
func (c Config) NodeID() string {
	return c.Node.String()
}
