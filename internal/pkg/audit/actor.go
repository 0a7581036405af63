package audit

import "context"

// Actor identifies who performed a request and where it entered the
// system. It travels on the context so services stay free of any HTTP
// framework types.
type Actor struct {
	Username   string
	Role       string
	Controller string
	Action     string
}

type actorKey struct{}

// WithActor returns a context carrying the request actor
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext extracts the actor from the context.
// ok is false when no actor was attached (background jobs, tests).
func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
