// Package auth resolves the caller's identity at the HTTP edge.
//
// Handlers read the Identity from the request context; domain services only
// ever see the model.Actor derived from it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/kala/internal/domain/model"
)

// Demo-mode headers.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
)

const defaultTokenTTL = 24 * time.Hour

// Identity is the authenticated caller.
type Identity struct {
	UserID      string
	DisplayName string
	Role        model.Role
}

// Actor returns the domain view of the identity.
func (id Identity) Actor() model.Actor {
	return model.Actor{UserID: id.UserID, Role: id.Role}
}

// Name returns the display name, falling back to the user id.
func (id Identity) Name() string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.UserID
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by the middleware, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Resolver extracts an identity from a request.
// It returns ErrMissingCredentials when the request carries none.
type Resolver interface {
	Resolve(r *http.Request) (Identity, error)
}

// HeaderResolver trusts the X-User-* headers. It is meant for demos and local runs.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(r *http.Request) (Identity, error) {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if userID == "" {
		return Identity{}, ErrMissingCredentials
	}
	role := model.RoleCustomer
	if raw := strings.TrimSpace(r.Header.Get(HeaderUserRole)); raw != "" {
		role = model.Role(strings.ToLower(raw))
	}
	if !role.Valid() {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return Identity{
		UserID:      userID,
		DisplayName: strings.TrimSpace(r.Header.Get(HeaderUserName)),
		Role:        role,
	}, nil
}

// Claims is the bearer token payload.
type Claims struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 bearer tokens.
type JWTResolver struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTResolver creates a resolver signing and verifying with secret.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), ttl: defaultTokenTTL, now: time.Now}
}

// Issue signs a token for id. Used by the load generator and tests.
func (j *JWTResolver) Issue(id Identity) (string, error) {
	now := j.now()
	claims := Claims{
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
		Role:        string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWTResolver) Resolve(r *http.Request) (Identity, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return Identity{}, ErrMissingCredentials
	}

	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return Identity{}, ErrInvalidToken
	}

	role := model.Role(claims.Role)
	if role == "" {
		role = model.RoleCustomer
	}
	if !role.Valid() {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return Identity{UserID: claims.UserID, DisplayName: claims.DisplayName, Role: role}, nil
}

// Middleware resolves the identity for every request and stores it in the context.
// Requests without credentials pass through anonymously; bad credentials are
// reported through onError so the caller controls the response shape.
func Middleware(res Resolver, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.Resolve(r)
			switch {
			case errors.Is(err, ErrMissingCredentials):
				next.ServeHTTP(w, r)
			case err != nil:
				onError(w, r, err)
			default:
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
			}
		})
	}
}
