package domain

import "context"

// SystemActor is recorded for changes made outside an authenticated request,
// such as the sync job or the CLI.
const SystemActor = "system"

type actorKey struct{}

// WithActor returns ctx carrying the id of whoever is making the change.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return SystemActor
}
