package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/vectorstore"
)

func TestPayloadIsolation_InjectFilter(t *testing.T) {
	iso := vectorstore.NewPayloadIsolation()
	ctx := scopeFor("t1")

	t.Run("adds scope filter", func(t *testing.T) {
		filters, err := iso.InjectFilter(ctx, map[string]interface{}{"document_id": "d1"})
		require.NoError(t, err)
		assert.Equal(t, "t1", filters["tenant_id"])
		assert.Equal(t, "d1", filters["document_id"])
	})

	t.Run("scope wins over caller-supplied tenant", func(t *testing.T) {
		// A caller must not be able to widen the query to another
		// workspace by smuggling a tenant_id filter.
		filters, err := iso.InjectFilter(ctx, map[string]interface{}{"tenant_id": "t2"})
		require.NoError(t, err)
		assert.Equal(t, "t1", filters["tenant_id"])
	})

	t.Run("fails closed without scope", func(t *testing.T) {
		_, err := iso.InjectFilter(context.Background(), nil)
		assert.ErrorIs(t, err, tenant.ErrMissingTenant)
	})

	t.Run("rejects empty tenant id", func(t *testing.T) {
		ctx := tenant.NewContext(context.Background(), &tenant.Info{})
		_, err := iso.InjectFilter(ctx, nil)
		assert.ErrorIs(t, err, tenant.ErrInvalidTenant)
	})
}

func TestPayloadIsolation_ValidateChunks(t *testing.T) {
	iso := vectorstore.NewPayloadIsolation()
	ctx := scopeFor("t1")

	err := iso.ValidateChunks(ctx, []vectorstore.Chunk{{TenantID: "t1"}, {TenantID: "t1"}})
	assert.NoError(t, err)

	err = iso.ValidateChunks(ctx, []vectorstore.Chunk{{TenantID: "t1"}, {TenantID: "t2"}})
	assert.ErrorIs(t, err, vectorstore.ErrScopeMismatch)
}

func TestPayloadIsolation_VerifyResult(t *testing.T) {
	iso := vectorstore.NewPayloadIsolation()
	ctx := scopeFor("t1")

	assert.True(t, iso.VerifyResult(ctx, map[string]interface{}{"tenant_id": "t1"}))
	assert.False(t, iso.VerifyResult(ctx, map[string]interface{}{"tenant_id": "t2"}))
	assert.False(t, iso.VerifyResult(ctx, map[string]interface{}{}))
	assert.False(t, iso.VerifyResult(context.Background(), map[string]interface{}{"tenant_id": "t1"}))
}
