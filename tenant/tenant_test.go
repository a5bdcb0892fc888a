package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExempt(t *testing.T) {
	tests := []struct {
		path   string
		exempt bool
	}{
		{"/auth/login", true},
		{"/auth/refresh", true},
		{"/auth/logout", true},
		{"/tenants", true},
		{"/tenants/check-code", true},
		{"/tenants/check-code/abc", true},
		{"/tenants/t1", true},
		{"/tenants/t1?include=plan", true},
		{"/tenants/t1/children", false},
		{"/tenants/t1/children/c2", false},
		{"/clients", false},
		{"/clients/42", false},
		{"/auth", false},
		{"/authx/login", false},
		{"/", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.exempt, Exempt(tt.path))
		})
	}
}

func TestContextCarrier(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "t1", id)
}

func TestContextCarrierMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	// Empty ids are not stored.
	ctx := WithTenant(context.Background(), "")
	_, ok = FromContext(ctx)
	assert.False(t, ok)
}
