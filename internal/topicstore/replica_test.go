// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package topicstore_test

import (
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/topicsync/internal/topicstore"
)

type ReplicaSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&ReplicaSuite{})

func (s *ReplicaSuite) TestStaleVersionIgnored(c *gc.C) {
	replica := topicstore.NewReplica("r")
	c.Assert(topicstore.ApplyUpdate(replica, "node-1", 2, encode(c, "new")), jc.ErrorIsNil)
	c.Assert(topicstore.ApplyUpdate(replica, "node-1", 1, encode(c, "old")), jc.ErrorIsNil)

	ok, err := replica.MayContain("node-1", "new")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ok, jc.IsTrue)
}

func (s *ReplicaSuite) TestGarbageRejected(c *gc.C) {
	replica := topicstore.NewReplica("r")
	err := topicstore.ApplyRaw(replica, []byte{0xc1})
	c.Check(err, gc.ErrorMatches, `replica "r": decoding replication record: .*`)
}

func (s *ReplicaSuite) TestRecordWithoutNodeRejected(c *gc.C) {
	replica := topicstore.NewReplica("r")
	err := topicstore.ApplyUpdate(replica, "", 1, nil)
	c.Check(errors.Is(err, errors.NotValid), jc.IsTrue)
}

func (s *ReplicaSuite) TestUnknownNode(c *gc.C) {
	replica := topicstore.NewReplica("r")
	ok, err := replica.MayContain("node-9", "x")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ok, jc.IsFalse)

	_, err = replica.Filter("node-9")
	c.Check(errors.Is(err, errors.NotFound), jc.IsTrue)
}

func (s *ReplicaSuite) TestCorruptFilter(c *gc.C) {
	replica := topicstore.NewReplica("r")
	c.Assert(topicstore.ApplyUpdate(replica, "node-1", 1, []byte{1, 2, 3}), jc.ErrorIsNil)

	_, err := replica.MayContain("node-1", "x")
	c.Check(err, gc.ErrorMatches, `node "node-1": decoding bloom filter: .*`)
	_, err = replica.NodesFor("x")
	c.Check(err, gc.ErrorMatches, `node "node-1": decoding bloom filter: .*`)
}
