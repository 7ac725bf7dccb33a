// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

/*
Package core holds the concepts and pure logic of topic synchronisation
that every other package may depend on.

When adding to core:

  * it's fine to import from any subpackage of "github.com/juju/topicsync/core"
  * but never import from any other subpackage of "github.com/juju/topicsync"
  * nothing here blocks, starts goroutines or talks to a topic store

The write consistency levels in core/consistency are the prime example: the
worker escalates them, the topic store interprets them and the config parses
them, but none of those concerns belong in core.
*/
package core
