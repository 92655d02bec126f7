package tenant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
)

func TestContextRoundTrip(t *testing.T) {
	info := &tenant.Info{TenantID: "t1", UserID: "u1", BotID: "b1"}
	ctx := tenant.NewContext(context.Background(), info)

	got, err := tenant.FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, info, got)
	assert.True(t, tenant.HasTenant(ctx))
}

func TestFromContext_FailsClosed(t *testing.T) {
	_, err := tenant.FromContext(context.Background())
	assert.ErrorIs(t, err, tenant.ErrMissingTenant)
	assert.False(t, tenant.HasTenant(context.Background()))
}

func TestInfo_Validate(t *testing.T) {
	assert.NoError(t, (&tenant.Info{TenantID: "t1"}).Validate())
	assert.ErrorIs(t, (&tenant.Info{}).Validate(), tenant.ErrInvalidTenant)
}

func TestInfo_Filter(t *testing.T) {
	info := &tenant.Info{TenantID: "t1", UserID: "u1", BotID: "b1"}

	// Only the workspace participates in query filtering; user and bot
	// are audit metadata.
	assert.Equal(t, map[string]interface{}{"tenant_id": "t1"}, info.Filter())

	meta := info.Metadata()
	assert.Equal(t, "t1", meta["tenant_id"])
	assert.Equal(t, "u1", meta["user_id"])
	assert.Equal(t, "b1", meta["bot_id"])
}

func TestBot_DomainAllowed(t *testing.T) {
	tests := []struct {
		name    string
		domains string
		origin  string
		want    bool
	}{
		{"no domains configured allows any", "", "https://anything.example", true},
		{"exact host", "shop.example.com", "https://shop.example.com", true},
		{"host with path", "shop.example.com", "https://shop.example.com/page", true},
		{"case insensitive", "Shop.Example.com", "https://shop.example.COM", true},
		{"second entry", "a.example.com, b.example.com", "https://b.example.com", true},
		{"other host", "shop.example.com", "https://evil.example.net", false},
		{"subdomain is not a match", "example.com", "https://sub.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := &tenant.Bot{AllowedDomains: tt.domains}
			assert.Equal(t, tt.want, bot.DomainAllowed(tt.origin))
		})
	}
}

func TestMemoryResolver(t *testing.T) {
	r := tenant.NewMemoryResolver()
	r.Register(&tenant.Bot{ID: "b1", TenantID: "t1"})

	bot, err := r.ResolveBot(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "t1", bot.TenantID)

	_, err = r.ResolveBot(context.Background(), "ghost")
	assert.ErrorIs(t, err, tenant.ErrUnknownBot)

	_, err = r.ResolveBot(context.Background(), "")
	assert.ErrorIs(t, err, tenant.ErrUnknownBot)
}
