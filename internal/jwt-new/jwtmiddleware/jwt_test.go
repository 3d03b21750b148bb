package jwtmiddleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iwanyu/marketplace/internal/domain/models"
	security "github.com/iwanyu/marketplace/internal/jwt-new"
	"github.com/iwanyu/marketplace/internal/jwt-new/jwtmiddleware"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "testsecret"

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

// serve прогоняет запрос через middleware и возвращает id из контекста (0 - аноним)
func serve(t *testing.T, rev jwtmiddleware.RevocationChecker, req *http.Request) (*httptest.ResponseRecorder, int64) {
	t.Helper()
	var got int64
	mw := jwtmiddleware.NewJWTMiddleware(logger.NewDiscard(), secret, rev)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = jwtmiddleware.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr, got
}

func newToken(t *testing.T, id int64) (string, *security.Claims) {
	t.Helper()
	tok, claims, err := security.NewToken(&models.Profile{ID: id, Email: "x@iwanyu.rw"}, secret, time.Hour)
	require.NoError(t, err)
	return tok, claims
}

func TestJWTMiddleware_MissingAuthorizationIsAnonymous(t *testing.T) {
	rr, id := serve(t, nil, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, id)
}

func TestJWTMiddleware_UnusableTokenIsAnonymous(t *testing.T) {
	expired, _, err := security.NewToken(&models.Profile{ID: 4, Email: "x@iwanyu.rw"}, secret, -time.Minute)
	require.NoError(t, err)
	foreign, _, err := security.NewToken(&models.Profile{ID: 4, Email: "x@iwanyu.rw"}, "other-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"not bearer", "InvalidFormat"},
		{"empty bearer", "Bearer "},
		{"garbage", "Bearer not-a-jwt"},
		{"expired", "Bearer " + expired},
		{"wrong signature", "Bearer " + foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)

			rr, id := serve(t, &fakeRevocations{}, req)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Zero(t, id)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	tok, _ := newToken(t, 123)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	rr, id := serve(t, &fakeRevocations{}, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(123), id)
}

func TestJWTMiddleware_QueryToken(t *testing.T) {
	tok, _ := newToken(t, 9)
	req := httptest.NewRequest(http.MethodGet, "/api/messages/stream?access_token="+tok, nil)

	rr, id := serve(t, nil, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(9), id)
}

func TestJWTMiddleware_RevokedTokenIsAnonymous(t *testing.T) {
	tok, claims := newToken(t, 5)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	rr, id := serve(t, &fakeRevocations{revoked: map[string]bool{claims.ID: true}}, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, id)
}

func TestJWTMiddleware_RevocationStoreDown(t *testing.T) {
	tok, _ := newToken(t, 5)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	var unverified bool
	var id int64
	mw := jwtmiddleware.NewJWTMiddleware(logger.NewDiscard(), secret, &fakeRevocations{err: errors.New("redis down")})
	rr := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unverified = jwtmiddleware.SessionUnverified(r.Context())
		id, _ = jwtmiddleware.FromContext(r.Context())
	})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, unverified)
	assert.Zero(t, id)
}

func TestClaimsFromContext(t *testing.T) {
	tok, claims := newToken(t, 77)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	var got *security.Claims
	mw := jwtmiddleware.NewJWTMiddleware(logger.NewDiscard(), secret, nil)
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = jwtmiddleware.ClaimsFromContext(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, claims.ID, got.ID)
}

func TestNewJWTMiddleware_EmptySecretPanics(t *testing.T) {
	assert.Panics(t, func() {
		jwtmiddleware.NewJWTMiddleware(logger.NewDiscard(), "", nil)
	})
}
