// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package topicstore

import (
	"github.com/juju/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// record is the replication message sent from a group to its replicas.
type record struct {
	NodeID  string `msgpack:"node"`
	Version uint64 `msgpack:"version"`
	Filter  []byte `msgpack:"filter,omitempty"`
	Removed bool   `msgpack:"removed,omitempty"`
}

func encodeRecord(r record) ([]byte, error) {
	data, err := msgpack.Marshal(r)
	return data, errors.Annotate(err, "encoding replication record")
}

func decodeRecord(data []byte) (record, error) {
	var r record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return record{}, errors.Annotate(err, "decoding replication record")
	}
	if r.NodeID == "" {
		return record{}, errors.NotValidf("replication record without node")
	}
	return r, nil
}
