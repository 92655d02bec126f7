// Package tenant carries workspace identity through request contexts.
//
// A workspace is the isolation boundary for documents, chunks, leads and
// usage counters. Identity is always resolved from the authenticated
// caller or a registered bot binding, never from user-supplied text.
package tenant

import (
	"context"
	"errors"
)

// Workspace identity errors - fail closed security model.
var (
	// ErrMissingTenant is returned when workspace info is missing from context.
	// This triggers "fail closed" behavior - no empty results, just errors.
	ErrMissingTenant = errors.New("workspace info missing from context")

	// ErrInvalidTenant is returned when a workspace identifier is invalid.
	ErrInvalidTenant = errors.New("invalid workspace identifier")

	// ErrUnknownBot is returned when a bot ID has no registered binding.
	ErrUnknownBot = errors.New("unknown bot identifier")
)

// tenantContextKey is the context key for Info.
type tenantContextKey struct{}

// Info holds workspace scope for filtering and isolation.
//
// Scope hierarchy:
//   - TenantID (required): workspace identifier
//   - UserID (optional): owning user within the workspace
//   - BotID (optional): the bot the request was addressed to
//
// Security: all fields are validated before use in queries.
type Info struct {
	// TenantID is the workspace identifier (required).
	TenantID string

	// UserID is the workspace owner's user identifier (optional).
	UserID string

	// BotID is the source bot identifier (optional).
	BotID string
}

// Validate checks that required fields are present and valid.
func (t *Info) Validate() error {
	if t.TenantID == "" {
		return ErrInvalidTenant
	}
	return nil
}

// NewContext adds workspace Info to a context.
func NewContext(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, info)
}

// FromContext extracts workspace Info from a context.
// Returns ErrMissingTenant if not present - fail closed.
func FromContext(ctx context.Context) (*Info, error) {
	val := ctx.Value(tenantContextKey{})
	if val == nil {
		return nil, ErrMissingTenant
	}
	info, ok := val.(*Info)
	if !ok || info == nil {
		return nil, ErrMissingTenant
	}
	return info, nil
}

// HasTenant checks if workspace Info is present in context without error.
func HasTenant(ctx context.Context) bool {
	_, err := FromContext(ctx)
	return err == nil
}

// Metadata returns workspace scope as a metadata map for chunk storage.
func (t *Info) Metadata() map[string]interface{} {
	meta := map[string]interface{}{
		"tenant_id": t.TenantID,
	}
	if t.UserID != "" {
		meta["user_id"] = t.UserID
	}
	if t.BotID != "" {
		meta["bot_id"] = t.BotID
	}
	return meta
}

// Filter returns the query filter for this workspace's scope.
//
// Only tenant_id participates in filtering. UserID and BotID are stored
// as metadata for auditing but a workspace owns all of its chunks
// regardless of which user uploaded them or which bot asks.
func (t *Info) Filter() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id": t.TenantID,
	}
}
