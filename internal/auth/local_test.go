package auth

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	authmw "github.com/studydeck/studydeck/internal/auth/middleware"
	"github.com/studydeck/studydeck/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	h, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	h := newTestDB(t)
	svc := authmw.NewAuthService("test-secret", time.Hour)

	rec := postJSON(t, RegisterHandler(h), `{"email":"Learner@Example.com","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"learner@example.com"`)

	// Same email again, any casing.
	rec = postJSON(t, RegisterHandler(h), `{"email":"learner@example.com","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = postJSON(t, LoginHandler(svc, h), `{"email":"learner@example.com","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"access_token"`)
	require.Contains(t, rec.Body.String(), `"bearer"`)
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	h := newTestDB(t)

	for _, body := range []string{
		`{"email":"","password":"hunter2hunter2"}`,
		`{"email":"a@b.c","password":"short"}`,
		`not json`,
	} {
		rec := postJSON(t, RegisterHandler(h), body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newTestDB(t)
	svc := authmw.NewAuthService("test-secret", time.Hour)

	_, err := CreateUser(context.Background(), h, "learner@example.com", "hunter2hunter2")
	require.NoError(t, err)

	rec := postJSON(t, LoginHandler(svc, h), `{"email":"learner@example.com","password":"wrong-password"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, LoginHandler(svc, h), `{"email":"nobody@example.com","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSeedUserIsIdempotent(t *testing.T) {
	h := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, SeedUser(ctx, h, "dev@example.com", "devpassword"))
	require.NoError(t, SeedUser(ctx, h, "dev@example.com", "devpassword"))

	var n int
	require.NoError(t, h.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email=$1`, "dev@example.com").Scan(&n))
	require.Equal(t, 1, n)
}
