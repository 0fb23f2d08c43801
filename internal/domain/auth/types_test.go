package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{input: "consumer", want: RoleConsumer},
		{input: "merchant", want: RoleMerchant},
		{input: "admin", wantErr: true},
		{input: "Merchant", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_HomePath(t *testing.T) {
	assert.Equal(t, "/consumer", RoleConsumer.HomePath())
	assert.Equal(t, "/merchant", RoleMerchant.HomePath())
}
