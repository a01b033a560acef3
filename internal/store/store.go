// Package store defines the shared-state boundary duel coordinators speak
// to, and provides an in-process implementation with realtime document store
// semantics: atomic per-path merge updates, push subscriptions that replay
// the current value, and mutations armed to run on connection loss.
package store

import (
	"encoding/json"
	"errors"
)

var (
	ErrAbsent = errors.New("no record at this path")
	ErrExists = errors.New("a record already exists at this path")
	ErrClosed = errors.New("connection is closed")
)

// Watcher yields a stream of full-record snapshots for a single path. A nil
// snapshot means the record is absent (deleted, or never created). The
// stream is at-least-once and coalescing: intermediate snapshots may be
// skipped under load but the latest one is always delivered.
type Watcher interface {
	Snapshots() <-chan json.RawMessage
	Cancel()
}

// Hook is an armed on-disconnect mutation. Cancel disarms it, it must only
// ever be called by the connection that registered the hook.
type Hook interface {
	Cancel()
}

// Conn is one participant's connection to the shared store. The only
// ordering guarantee is per-writer: mutations issued through a Conn are
// observed by every watcher in the order they were issued.
type Conn interface {
	// Create writes a fresh record, it fails with ErrExists if the path is
	// already occupied.
	Create(path string, record interface{}) error

	// Read unmarshals the record at path into dst, or returns ErrAbsent.
	Read(path string, dst interface{}) error

	// Update applies partial to the record at path as a JSON merge patch,
	// atomically with respect to every other mutation of the same path.
	Update(path string, partial interface{}) error

	Delete(path string) error

	// Keys lists the paths of live records under the given prefix.
	Keys(prefix string) ([]string, error)

	// Watch subscribes to a path. The watcher fires once immediately with
	// the current value, then on every change.
	Watch(path string) (Watcher, error)

	// OnDisconnectUpdate arms a merge patch to be applied if the connection
	// drops abruptly.
	OnDisconnectUpdate(path string, partial interface{}) (Hook, error)

	// OnDisconnectDelete arms a record removal to be applied if the
	// connection drops abruptly.
	OnDisconnectDelete(path string) (Hook, error)

	// Close ends the connection gracefully: watchers are cancelled and armed
	// hooks are discarded without firing.
	Close()

	// Drop ends the connection as an abrupt loss: armed hooks fire in the
	// order they were registered.
	Drop()
}
