package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func sign(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestManager_IssueParse(t *testing.T) {
	m := NewManager(testSecret, time.Hour)

	for _, p := range []domain.Principal{
		{UserID: 42, Role: domain.RoleUser},
		{UserID: 1, Role: domain.RoleAdmin},
	} {
		tok, exp, err := m.Issue(p)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

		got, err := m.Parse(tok)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestManager_Parse(t *testing.T) {
	m := NewManager(testSecret, time.Hour)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		want    domain.Principal
		wantErr bool
	}{
		{
			name:  "numeric sub without role defaults to user",
			token: sign(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": 7, "exp": exp}),
			want:  domain.Principal{UserID: 7, Role: domain.RoleUser},
		},
		{
			name:    "wrong secret",
			token:   sign(t, "another-secret-another-secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "exp": exp}),
			wantErr: true,
		},
		{
			name:    "other algorithm",
			token:   sign(t, testSecret, jwt.SigningMethodHS512, jwt.MapClaims{"sub": "7", "exp": exp}),
			wantErr: true,
		},
		{
			name:    "expired",
			token:   sign(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(-time.Minute).Unix()}),
			wantErr: true,
		},
		{
			name:    "no expiry",
			token:   sign(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7"}),
			wantErr: true,
		},
		{
			name:    "unknown role",
			token:   sign(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "role": "root", "exp": exp}),
			wantErr: true,
		},
		{
			name:    "missing sub",
			token:   sign(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp}),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not-a-token",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Parse(tt.token)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
