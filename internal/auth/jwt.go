// Package auth issues and verifies the HS256 access tokens that identify
// callers of the HTTP and realtime APIs.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kirinyoku/cinebook/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token whose subject is the user id.
func (m *Manager) Issue(p domain.Principal) (string, time.Time, error) {
	const op = "auth.Manager.Issue"

	now := m.now().UTC()
	exp := now.Add(m.ttl)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(p.UserID, 10),
		"role": p.Role.String(),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s:%w", op, err)
	}

	return signed, exp, nil
}

// Parse verifies raw and returns the caller it identifies. Every failure
// wraps ErrInvalidToken.
func (m *Manager) Parse(raw string) (domain.Principal, error) {
	const op = "auth.Manager.Parse"

	tok, err := jwt.Parse(
		raw,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tok.Valid {
		return domain.Principal{}, fmt.Errorf("%s:%w: %v", op, ErrInvalidToken, err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Principal{}, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	userID, err := subject(claims)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%s:%w: %v", op, ErrInvalidToken, err)
	}

	roleClaim, _ := claims["role"].(string)
	role, err := domain.ParseRole(roleClaim)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%s:%w: %v", op, ErrInvalidToken, err)
	}

	return domain.Principal{UserID: userID, Role: role}, nil
}

// subject accepts the user id as a string or a JSON number.
func subject(claims jwt.MapClaims) (int64, error) {
	var id int64
	switch v := claims["sub"].(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad sub: %w", err)
		}
		id = n
	case float64:
		id = int64(v)
	default:
		return 0, errors.New("missing sub")
	}

	if id <= 0 {
		return 0, errors.New("sub must be positive")
	}
	return id, nil
}
