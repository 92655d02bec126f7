package vectorstore

import (
	"context"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
)

// IsolationMode defines how workspace isolation is enforced.
//
// Security: implementations must fail closed - absent workspace scope is
// an error, never an unfiltered query.
type IsolationMode interface {
	// InjectFilter adds workspace filtering to query filters.
	// Must fail with tenant.ErrMissingTenant if scope is absent.
	InjectFilter(ctx context.Context, filters map[string]interface{}) (map[string]interface{}, error)

	// ValidateChunks checks that every chunk is tagged with the
	// workspace from ctx. Returns ErrScopeMismatch otherwise.
	ValidateChunks(ctx context.Context, chunks []Chunk) error

	// VerifyResult reports whether a result's metadata matches the
	// scope in ctx. Used as a defensive post-query check.
	VerifyResult(ctx context.Context, metadata map[string]interface{}) bool

	// Mode returns the isolation mode name for logging.
	Mode() string
}

// PayloadIsolation enforces isolation via metadata filtering.
//
// All chunks live in a single collection; tenant_id is stored as chunk
// metadata and every query is filtered by the scope from the request
// context. There is no bypass: the stores call InjectFilter on every
// query path.
type PayloadIsolation struct{}

// NewPayloadIsolation creates a PayloadIsolation mode.
func NewPayloadIsolation() *PayloadIsolation {
	return &PayloadIsolation{}
}

// InjectFilter merges the workspace filter into existing query filters.
// The scope filter wins over caller-supplied tenant_id values.
func (p *PayloadIsolation) InjectFilter(ctx context.Context, filters map[string]interface{}) (map[string]interface{}, error) {
	info, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	merged := make(map[string]interface{}, len(filters)+1)
	for k, v := range filters {
		merged[k] = v
	}
	for k, v := range info.Filter() {
		merged[k] = v
	}
	return merged, nil
}

// ValidateChunks rejects any chunk not tagged with the context workspace.
func (p *PayloadIsolation) ValidateChunks(ctx context.Context, chunks []Chunk) error {
	info, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := info.Validate(); err != nil {
		return err
	}
	for _, c := range chunks {
		if c.TenantID != info.TenantID {
			return ErrScopeMismatch
		}
	}
	return nil
}

// VerifyResult reports whether result metadata carries the scope tenant.
func (p *PayloadIsolation) VerifyResult(ctx context.Context, metadata map[string]interface{}) bool {
	info, err := tenant.FromContext(ctx)
	if err != nil {
		return false
	}
	got, _ := metadata["tenant_id"].(string)
	return got == info.TenantID
}

// Mode returns "payload".
func (p *PayloadIsolation) Mode() string { return "payload" }

// NoIsolation provides no workspace isolation - for tests only.
type NoIsolation struct{}

// NewNoIsolation creates a NoIsolation mode (tests only).
func NewNoIsolation() *NoIsolation { return &NoIsolation{} }

// InjectFilter passes filters through unchanged.
func (n *NoIsolation) InjectFilter(_ context.Context, filters map[string]interface{}) (map[string]interface{}, error) {
	return filters, nil
}

// ValidateChunks always succeeds.
func (n *NoIsolation) ValidateChunks(context.Context, []Chunk) error { return nil }

// VerifyResult always succeeds.
func (n *NoIsolation) VerifyResult(context.Context, map[string]interface{}) bool { return true }

// Mode returns "none".
func (n *NoIsolation) Mode() string { return "none" }

var (
	_ IsolationMode = (*PayloadIsolation)(nil)
	_ IsolationMode = (*NoIsolation)(nil)
)
