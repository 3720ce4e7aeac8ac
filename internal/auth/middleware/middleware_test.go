package auth

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/coursekit/coursekit-lms/internal/rbac"
	"github.com/coursekit/coursekit-lms/internal/testutil"
)

func TestIssueParseRoundTrip(t *testing.T) {
	a := NewAuthService("test-secret")
	tok, err := a.IssueJWT("u1", "learner")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Sub)
	assert.Equal(t, "learner", claims.Role)
	assert.Equal(t, "coursekit", claims.Issuer)

	// A token signed with a different secret never parses.
	other := NewAuthService("other-secret")
	_, err = other.Parse(tok)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("test-secret")
	tok, err := a.IssueJWT("u1", "instructor")
	require.NoError(t, err)

	var gotSub, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := JWTMiddleware(a)(next)

	// No Authorization header.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token lands subject and role in the context.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u1", gotSub)
	assert.Equal(t, "instructor", gotRole)
}

func seedUser(t *testing.T, db *sql.DB, id, username, password, role string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
		id, username, string(hash), role, int64(1700000000))
	require.NoError(t, err)
}

func TestLoginHandler(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedUser(t, db, "u1", "ada", "s3cret", "learner")

	a := NewAuthService("test-secret")
	h := LoginHandler(a, db)

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte(body)))
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"username":"ada","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out["access_token"])
	assert.Equal(t, "learner", out["role"])

	// Issued tokens carry the DB identity.
	claims, err := a.Parse(out["access_token"])
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Sub)

	assert.Equal(t, http.StatusUnauthorized, post(`{"username":"ada","password":"wrong"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(`{"username":"nobody","password":"s3cret"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"username":`).Code)
}

func TestAttachRoleFromDB(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedUser(t, db, "u1", "ada", "s3cret", "instructor")

	var gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = rbac.RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	serve := func(h http.Handler, sub, claimRole string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/x", nil)
		ctx := WithSubject(req.Context(), sub)
		ctx = rbac.WithRole(ctx, claimRole)
		h.ServeHTTP(rec, req.WithContext(ctx))
		return rec
	}

	// DB role overrides a stale claim.
	strict := AttachRoleFromDB(db, false)(next)
	rec := serve(strict, "u1", "learner")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "instructor", gotRole)

	// Lookup works by username too.
	rec = serve(strict, "ada", "learner")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "instructor", gotRole)

	// Unknown subject: strict mode denies non-admin claims.
	rec = serve(strict, "ghost", "learner")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin claims pass even without a row.
	rec = serve(strict, "ghost", "admin")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "admin", gotRole)

	// Fallback mode keeps whatever the token claimed.
	lenient := AttachRoleFromDB(db, true)(next)
	rec = serve(lenient, "ghost", "learner")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "learner", gotRole)
}
