package middleware

import (
	"context"
	"net/http"
	"strings"

	"slotbook/pkg/model"
)

const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
)

type actorKey struct{}

// Actor is the caller identity asserted by the upstream identity provider.
type Actor struct {
	ID   string          `json:"id" validate:"required,max=64"`
	Role model.ActorRole `json:"role" validate:"required,actor_role"`
}

// Key identifies the actor for per-caller limits and caches.
func (a Actor) Key() string {
	if a.ID == "" {
		return ""
	}
	return string(a.Role) + ":" + a.ID
}

// Identity copies the trusted identity headers into the request context.
// Validation is left to the handlers that need an actor.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := Actor{
				ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
				Role: model.ActorRole(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole)))),
			}
			ctx := context.WithValue(r.Context(), actorKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.ID == "" {
		return Actor{}, false
	}
	return actor, true
}

func ActorKeyExtractor(r *http.Request) string {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		return ""
	}
	return actor.Key()
}
