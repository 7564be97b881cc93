// Package contracts holds the small interfaces shared by the app wiring and
// the service packages.
package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

// Handler mounts its endpoints on a router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
