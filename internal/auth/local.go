package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authmw "github.com/studydeck/studydeck/internal/auth/middleware"
)

// RegisterHandler creates a learner account.
// POST /auth/register  { "email": "...", "password": "..." }
func RegisterHandler(db *sql.DB) http.HandlerFunc {
	type out struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || len(req.Password) < 8 {
			http.Error(w, "email and password (min 8 chars) required", http.StatusBadRequest)
			return
		}
		id, err := CreateUser(r.Context(), db, req.Email, req.Password)
		if err != nil {
			if errors.Is(err, ErrEmailTaken) {
				http.Error(w, "email already registered", http.StatusConflict)
				return
			}
			http.Error(w, "create user", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(out{ID: id, Email: req.Email})
	}
}

// LoginHandler verifies credentials and issues a bearer token.
// POST /auth/login  { "email": "...", "password": "..." }
func LoginHandler(a *authmw.AuthService, db *sql.DB) http.HandlerFunc {
	type out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		var id, hash string
		err := db.QueryRowContext(r.Context(),
			`SELECT id, password_hash FROM users WHERE email=$1`,
			strings.TrimSpace(strings.ToLower(req.Email))).Scan(&id, &hash)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, "lookup user", http.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(id)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(out{AccessToken: tok, TokenType: "bearer"})
	}
}

var ErrEmailTaken = errors.New("email already registered")

// CreateUser inserts a user with a bcrypt-hashed password and returns its id.
func CreateUser(ctx context.Context, db *sql.DB, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1,$2,$3,$4)`,
		id, email, string(hash), time.Now().Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return id, nil
}

// SeedUser ensures a known account exists (offline/dev startup).
func SeedUser(ctx context.Context, db *sql.DB, email, password string) error {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=$1`, email).Scan(&exists)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = CreateUser(ctx, db, email, password)
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
