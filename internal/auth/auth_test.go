package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStaff(t *testing.T) *Staff {
	t.Helper()
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	s, err := NewStaff("Clerk", hash)
	require.NoError(t, err)
	return s
}

func TestTokenMaker_RoundTrip(t *testing.T) {
	tm := NewTokenMaker("test-secret")

	tok, err := tm.New("clerk", RoleStaff, time.Minute)
	require.NoError(t, err)

	c, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "clerk", c.Username)
	assert.Equal(t, RoleStaff, c.Role)
}

func TestTokenMaker_Rejects(t *testing.T) {
	tm := NewTokenMaker("test-secret")
	tok, err := tm.New("clerk", RoleStaff, time.Minute)
	require.NoError(t, err)

	t.Run("other secret", func(t *testing.T) {
		_, err := NewTokenMaker("other").Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewTokenMaker("test-secret")
		late.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		_, err := late.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestStaff_Verify(t *testing.T) {
	s := newStaff(t)

	assert.NoError(t, s.Verify(" clerk ", "correct horse"))
	assert.ErrorIs(t, s.Verify("clerk", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, s.Verify("someone", "correct horse"), ErrInvalidCredentials)
}

func TestNewStaff_RejectsBadInput(t *testing.T) {
	_, err := NewStaff("", "$2a$10$abc")
	assert.Error(t, err)

	_, err = NewStaff("clerk", "plaintext")
	assert.Error(t, err)
}

func TestServer_HandleLogin(t *testing.T) {
	tm := NewTokenMaker("test-secret")
	s := &Server{Log: zap.NewNop(), Staff: newStaff(t), JWT: tm, TokenTTL: 15 * time.Minute}

	login := func(body any) *httptest.ResponseRecorder {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		s.HandleLogin(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(raw)))
		return rec
	}

	t.Run("valid credentials", func(t *testing.T) {
		rec := login(map[string]string{"username": "clerk", "password": "correct horse"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp loginResp
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(900), resp.ExpiresIn)

		c, err := tm.Parse(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, RoleStaff, c.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := login(map[string]string{"username": "clerk", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := login(map[string]string{"username": "clerk"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := login(map[string]string{"username": "clerk", "password": "x", "role": "admin"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRequireStaff(t *testing.T) {
	tm := NewTokenMaker("test-secret")
	var seen Claims
	h := RequireStaff(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(authz string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/books", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	staffTok, err := tm.New("clerk", RoleStaff, time.Minute)
	require.NoError(t, err)
	guestTok, err := tm.New("guest", "viewer", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, serve(""))
	assert.Equal(t, http.StatusUnauthorized, serve("Bearer junk"))
	assert.Equal(t, http.StatusForbidden, serve("Bearer "+guestTok))
	assert.Equal(t, http.StatusNoContent, serve("Bearer "+staffTok))
	assert.Equal(t, "clerk", seen.Username)
}
