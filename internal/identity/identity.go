// Package identity resolves user IDs to display names for the completed-by
// audit fields. User management itself lives in an external system; this is
// only the lookup contract plus a passthrough default.
package identity

import "context"

type Resolver interface {
	// DisplayName returns the human-readable name for a user ID.
	// Unknown IDs fall back to the ID itself rather than erroring.
	DisplayName(ctx context.Context, userID string) string
}

// StaticResolver resolves from a fixed map, falling back to the raw ID.
type StaticResolver struct {
	names map[string]string
}

func NewStaticResolver(names map[string]string) *StaticResolver {
	if names == nil {
		names = map[string]string{}
	}
	return &StaticResolver{names: names}
}

func (r *StaticResolver) DisplayName(_ context.Context, userID string) string {
	if name, ok := r.names[userID]; ok {
		return name
	}
	return userID
}
