package main

import (
	"context"
	"fmt"
)

// endpoint abstracts one side of the comparison so the diff engine never
// cares where a snapshot came from: a live MariaDB server or a snapshot
// file saved by `adjustdb snapshot`.
type endpoint interface {
	// Name returns the logical database name for this side.
	Name() string

	// Snapshot introspects (or loads) the full schema. Tables with
	// malformed metadata are excluded and returned separately; the
	// snapshot stays valid.
	Snapshot(ctx context.Context) (*Snapshot, []*MalformedMetadataError, error)

	Close() error
}

// newEndpoint opens the endpoint described by an EndpointConfig. Connection
// and authentication failures surface here, before the core ever runs.
func newEndpoint(cfg EndpointConfig) (endpoint, error) {
	switch cfg.Type {
	case "mariadb":
		return openMariaDBEndpoint(cfg.DSN)
	case "snapshot":
		return openFileEndpoint(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported endpoint type %q (must be mariadb or snapshot)", cfg.Type)
	}
}
