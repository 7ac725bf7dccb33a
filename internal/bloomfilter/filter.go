// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package bloomfilter encodes a set of topics as a Bloom filter so that
// other nodes can test "might this node care about topic T" without
// holding the full subscription directory. Lookups can yield false
// positives but never false negatives.
package bloomfilter

import (
	"bytes"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/juju/errors"
)

// DefaultFalsePositiveRate is used when callers do not specify a rate.
const DefaultFalsePositiveRate = 0.01

// Filter is an approximate set of topics.
type Filter struct {
	filter *bloom.BloomFilter
}

// New returns a filter containing the given topics. The filter is sized
// for bufferFactor times the number of topics so that it keeps an
// acceptable false positive rate while the set grows before the next
// rebuild. A bufferFactor below 1 is treated as 1 and a false positive
// rate outside (0, 1) falls back to DefaultFalsePositiveRate.
func New(topics []string, bufferFactor int, falsePositiveRate float64) *Filter {
	if bufferFactor < 1 {
		bufferFactor = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = DefaultFalsePositiveRate
	}
	capacity := len(topics) * bufferFactor
	if capacity < 1 {
		capacity = 1
	}
	f := bloom.NewWithEstimates(uint(capacity), falsePositiveRate)
	for _, topic := range topics {
		f.AddString(topic)
	}
	return &Filter{filter: f}
}

// Decode reads a filter previously written by MarshalBinary.
func Decode(data []byte) (*Filter, error) {
	if len(data) == 0 {
		return nil, errors.NotValidf("empty bloom filter")
	}
	f := &bloom.BloomFilter{}
	if _, err := f.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, errors.Annotate(err, "decoding bloom filter")
	}
	return &Filter{filter: f}, nil
}

// MayContain reports whether the topic might be in the set.
func (f *Filter) MayContain(topic string) bool {
	return f.filter.TestString(topic)
}

// Bits returns the size of the filter in bits.
func (f *Filter) Bits() uint {
	return f.filter.Cap()
}

// HashCount returns the number of hash functions used per topic.
func (f *Filter) HashCount() uint {
	return f.filter.K()
}

// MarshalBinary is part of encoding.BinaryMarshaler.
func (f *Filter) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.filter.WriteTo(&buf); err != nil {
		return nil, errors.Trace(err)
	}
	return buf.Bytes(), nil
}
