// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package localsubscriptions

import (
	"github.com/juju/collections/set"
)

// Reader is a point in time, read-only copy of Subscriptions. It is
// never modified after creation and may be shared between goroutines.
type Reader struct {
	subscriberTopics map[string]set.Strings
	topicSubscribers map[string]set.Strings
}

func newReader(subscriberTopics map[string]set.Strings) *Reader {
	r := &Reader{
		subscriberTopics: make(map[string]set.Strings, len(subscriberTopics)),
		topicSubscribers: make(map[string]set.Strings),
	}
	for subscriber, topics := range subscriberTopics {
		r.subscriberTopics[subscriber] = set.NewStrings(topics.Values()...)
		for topic := range topics {
			subscribers, ok := r.topicSubscribers[topic]
			if !ok {
				subscribers = set.NewStrings()
				r.topicSubscribers[topic] = subscribers
			}
			subscribers.Add(subscriber)
		}
	}
	return r
}

// IsSubscribed reports whether the subscriber cared about the topic when
// the snapshot was taken.
func (r *Reader) IsSubscribed(subscriber, topic string) bool {
	topics, ok := r.subscriberTopics[subscriber]
	return ok && topics.Contains(topic)
}

// Topics returns the sorted topics of the subscriber.
func (r *Reader) Topics(subscriber string) []string {
	topics, ok := r.subscriberTopics[subscriber]
	if !ok {
		return nil
	}
	return topics.SortedValues()
}

// Recipients returns the sorted IDs of subscribers to the topic.
func (r *Reader) Recipients(topic string) []string {
	subscribers, ok := r.topicSubscribers[topic]
	if !ok {
		return nil
	}
	return subscribers.SortedValues()
}

// SubscriberIDs returns the sorted IDs of all subscribers.
func (r *Reader) SubscriberIDs() []string {
	ids := set.NewStrings()
	for id := range r.subscriberTopics {
		ids.Add(id)
	}
	return ids.SortedValues()
}

// TopicCount returns the number of distinct topics in the snapshot.
func (r *Reader) TopicCount() int {
	return len(r.topicSubscribers)
}

// IsEmpty reports whether the snapshot holds no subscribers.
func (r *Reader) IsEmpty() bool {
	return len(r.subscriberTopics) == 0
}
