// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package consistency describes how many replicas of the cluster-wide
// topic store must accept a write before it counts as durable.
//
// Levels form a total order used to escalate the consistency of a batch
// of subscription changes:
//
//	Local < To(n) < Majority(minCap) < All
//
// Levels of the same kind are ordered by their parameter.
package consistency

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Kind identifies the shape of a write consistency level.
type Kind int

const (
	// LocalKind writes only to the local replica.
	LocalKind Kind = iota

	// ToKind writes to a fixed number of replicas, including the local one.
	ToKind

	// MajorityKind writes to a majority of replicas, with a lower bound.
	MajorityKind

	// AllKind writes to every replica.
	AllKind
)

// String is part of fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case LocalKind:
		return "local"
	case ToKind:
		return "to"
	case MajorityKind:
		return "majority"
	case AllKind:
		return "all"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Level is a write consistency level. The zero value is Local.
type Level struct {
	kind Kind
	n    int
}

// Local returns the weakest level: only the local replica must accept
// the write.
func Local() Level {
	return Level{kind: LocalKind}
}

// To returns a level requiring n replicas, the local one included.
// Values below 1 are treated as 1.
func To(n int) Level {
	if n < 1 {
		n = 1
	}
	return Level{kind: ToKind, n: n}
}

// Majority returns a level requiring a majority of replicas, but never
// fewer than minCap of them.
func Majority(minCap int) Level {
	if minCap < 0 {
		minCap = 0
	}
	return Level{kind: MajorityKind, n: minCap}
}

// All returns the strongest level: every replica must accept the write.
func All() Level {
	return Level{kind: AllKind}
}

// Kind returns the kind of the level.
func (l Level) Kind() Kind {
	return l.kind
}

// N returns the replica count of a To level, or the minimum cap of a
// Majority level. It is zero for the other kinds.
func (l Level) N() int {
	return l.n
}

// Required returns how many acknowledgements a write at this level needs
// in a group of the given number of replicas. The result may exceed the
// group size for To levels, in which case the write cannot succeed.
func (l Level) Required(replicas int) int {
	switch l.kind {
	case ToKind:
		return l.n
	case MajorityKind:
		required := replicas/2 + 1
		if l.n > required {
			required = l.n
		}
		if required > replicas {
			required = replicas
		}
		return required
	case AllKind:
		return replicas
	}
	return 1
}

// Compare returns -1, 0 or +1 depending on whether l is weaker than,
// as strong as, or stronger than other.
func (l Level) Compare(other Level) int {
	switch {
	case l.kind < other.kind:
		return -1
	case l.kind > other.kind:
		return 1
	case l.n < other.n:
		return -1
	case l.n > other.n:
		return 1
	}
	return 0
}

// StrongerThan reports whether l ranks strictly above other.
func (l Level) StrongerThan(other Level) bool {
	return l.Compare(other) > 0
}

// Max returns the stronger of the two levels. When they rank equally
// the first one is returned.
func Max(a, b Level) Level {
	if b.StrongerThan(a) {
		return b
	}
	return a
}

// String returns the textual form accepted by Parse.
func (l Level) String() string {
	switch l.kind {
	case ToKind, MajorityKind:
		return fmt.Sprintf("%s-%d", l.kind, l.n)
	}
	return l.kind.String()
}

// Parse reads a level written as "local", "all", "to-<n>" or
// "majority-<min>". A bare "majority" means a minimum cap of zero.
func Parse(s string) (Level, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	switch value {
	case "local":
		return Local(), nil
	case "all":
		return All(), nil
	case "majority":
		return Majority(0), nil
	}
	kind, arg, ok := strings.Cut(value, "-")
	if !ok {
		return Level{}, errors.NotValidf("write consistency %q", s)
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return Level{}, errors.NotValidf("write consistency %q", s)
	}
	switch kind {
	case "to":
		if n == 0 {
			return Level{}, errors.NotValidf("write consistency %q", s)
		}
		return To(n), nil
	case "majority":
		return Majority(n), nil
	}
	return Level{}, errors.NotValidf("write consistency %q", s)
}
