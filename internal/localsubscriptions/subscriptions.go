// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package localsubscriptions tracks which local subscribers are
// interested in which topics.
package localsubscriptions

import (
	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/juju/topicsync/internal/bloomfilter"
)

// Subscriptions maps subscriber IDs to the topics they subscribe to.
// A subscriber in the set always has at least one topic.
//
// Subscriptions is not goroutine safe; it is meant to be owned by a
// single worker loop. Use Snapshot to hand its content to others.
type Subscriptions struct {
	subscriberTopics map[string]set.Strings
	topicSubscribers map[string]set.Strings
}

// New returns an empty Subscriptions.
func New() *Subscriptions {
	return &Subscriptions{
		subscriberTopics: make(map[string]set.Strings),
		topicSubscribers: make(map[string]set.Strings),
	}
}

// Subscribe adds the topics to the subscriber. It reports whether the
// union of all subscribed topics changed.
func (s *Subscriptions) Subscribe(subscriber string, topics ...string) bool {
	if len(topics) == 0 {
		return false
	}
	current, ok := s.subscriberTopics[subscriber]
	if !ok {
		current = set.NewStrings()
		s.subscriberTopics[subscriber] = current
	}
	changed := false
	for _, topic := range topics {
		current.Add(topic)
		subscribers, ok := s.topicSubscribers[topic]
		if !ok {
			subscribers = set.NewStrings()
			s.topicSubscribers[topic] = subscribers
			changed = true
		}
		subscribers.Add(subscriber)
	}
	return changed
}

// Unsubscribe removes the topics from the subscriber, dropping the
// subscriber once it has no topics left. It reports whether the union of
// all subscribed topics changed.
func (s *Subscriptions) Unsubscribe(subscriber string, topics ...string) bool {
	current, ok := s.subscriberTopics[subscriber]
	if !ok {
		return false
	}
	changed := false
	for _, topic := range topics {
		if !current.Contains(topic) {
			continue
		}
		current.Remove(topic)
		if s.removeTopicSubscriber(topic, subscriber) {
			changed = true
		}
	}
	if current.IsEmpty() {
		delete(s.subscriberTopics, subscriber)
	}
	return changed
}

// RemoveSubscriber drops the subscriber and all of its topics. It
// reports whether the union of all subscribed topics changed.
func (s *Subscriptions) RemoveSubscriber(subscriber string) bool {
	current, ok := s.subscriberTopics[subscriber]
	if !ok {
		return false
	}
	delete(s.subscriberTopics, subscriber)
	changed := false
	for _, topic := range current.Values() {
		if s.removeTopicSubscriber(topic, subscriber) {
			changed = true
		}
	}
	return changed
}

// removeTopicSubscriber updates the topic index and reports whether the
// topic left the union.
func (s *Subscriptions) removeTopicSubscriber(topic, subscriber string) bool {
	subscribers, ok := s.topicSubscribers[topic]
	if !ok {
		return false
	}
	subscribers.Remove(subscriber)
	if !subscribers.IsEmpty() {
		return false
	}
	delete(s.topicSubscribers, topic)
	return true
}

// Contains reports whether the subscriber has any topics.
func (s *Subscriptions) Contains(subscriber string) bool {
	_, ok := s.subscriberTopics[subscriber]
	return ok
}

// IsEmpty reports whether there are no subscribers at all.
func (s *Subscriptions) IsEmpty() bool {
	return len(s.subscriberTopics) == 0
}

// TopicCount returns the number of distinct topics subscribed to.
func (s *Subscriptions) TopicCount() int {
	return len(s.topicSubscribers)
}

// SubscriberCount returns the number of subscribers.
func (s *Subscriptions) SubscriberCount() int {
	return len(s.subscriberTopics)
}

// Topics returns the sorted union of all subscribed topics.
func (s *Subscriptions) Topics() []string {
	topics := set.NewStrings()
	for topic := range s.topicSubscribers {
		topics.Add(topic)
	}
	return topics.SortedValues()
}

// Snapshot returns an immutable copy of the current subscriptions.
func (s *Subscriptions) Snapshot() *Reader {
	return newReader(s.subscriberTopics)
}

// Encode returns the serialised Bloom filter of the union of all
// subscribed topics.
func (s *Subscriptions) Encode(bufferFactor int, falsePositiveRate float64) ([]byte, error) {
	topics := make([]string, 0, len(s.topicSubscribers))
	for topic := range s.topicSubscribers {
		topics = append(topics, topic)
	}
	data, err := bloomfilter.New(topics, bufferFactor, falsePositiveRate).MarshalBinary()
	return data, errors.Trace(err)
}
