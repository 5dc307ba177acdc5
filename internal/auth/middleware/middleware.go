package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const learnerKey ctxKey = iota

// WithLearnerKey stamps the authenticated learner key onto the context.
func WithLearnerKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, learnerKey, key)
}

// LearnerKeyFromContext returns the learner key set by JWTMiddleware, or
// "" on an unauthenticated context.
func LearnerKeyFromContext(ctx context.Context) string {
	k, _ := ctx.Value(learnerKey).(string)
	return k
}

type AuthService struct {
	hmac []byte
	ttl  time.Duration
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	return &AuthService{hmac: []byte(secret), ttl: ttl}
}

type Claims struct {
	Sub string `json:"sub"`
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub: sub,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "studydeck",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	c, ok := token.Claims.(*Claims)
	if !ok || c.Sub == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return c, nil
}

// JWTMiddleware rejects requests without a valid bearer token and puts
// the authenticated subject (the learner key) on the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithLearnerKey(r.Context(), c.Sub)))
		})
	}
}
