package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SergeyBogomolovv/storefront-orders/internal/config"
	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/utils"
)

var signingMethod = jwt.SigningMethodHS256

// Claims are issued by the storefront's auth service. The subject is the user id.
type Claims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

type identityKey struct{}

func WithIdentity(ctx context.Context, who entities.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, who)
}

// IdentityFromContext returns the caller, or an anonymous identity.
func IdentityFromContext(ctx context.Context) entities.Identity {
	who, _ := ctx.Value(identityKey{}).(entities.Identity)
	return who
}

type Authenticator struct {
	secret []byte
	issuer string
	logger *slog.Logger
}

func NewAuthenticator(logger *slog.Logger, cfg config.Auth) *Authenticator {
	return &Authenticator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		logger: logger.With(slog.String("middleware", "auth")),
	}
}

// Authenticate resolves the bearer token, if any, into an identity. Requests
// without a token pass through anonymously; a bad token is rejected.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			utils.WriteError(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		who, err := a.Parse(token)
		if err != nil {
			a.logger.Debug("rejected token", slog.Any("error", err))
			utils.WriteError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if rw, ok := w.(*responseWriter); ok {
			rw.who = who
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), who)))
	})
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()).IsAnonymous() {
			utils.WriteError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) Parse(tokenString string) (entities.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return entities.Identity{}, err
	}
	if claims.Subject == "" {
		return entities.Identity{}, errors.New("token has no subject")
	}

	return entities.Identity{ID: claims.Subject, IsAdmin: claims.IsAdmin}, nil
}

// Sign issues a token for who. Production tokens come from the auth service;
// this is used by tests and local tooling.
func (a *Authenticator) Sign(who entities.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		IsAdmin: who.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   who.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}
