package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"storefront/globals"
	"storefront/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Middleware decorates a router handle.
type Middleware func(httprouter.Handle) httprouter.Handle

// Chain applies mws so that the first one listed runs first.
func Chain(mws ...Middleware) func(httprouter.Handle) httprouter.Handle {
	return func(h httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}

// JWT claims
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Auth validates HS256 bearer tokens issued by the identity service.
type Auth struct {
	secret []byte
}

func NewAuth(secret []byte) *Auth {
	return &Auth{secret: secret}
}

func (a *Auth) keyFunc(token *jwt.Token) (any, error) {
	return a.secret, nil
}

// ValidateJWT parses a raw token (without the Bearer prefix).
func (a *Auth) ValidateJWT(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("invalid token")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, a.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("unauthorized: token has no userId")
	}
	return claims, nil
}

// tokenFromRequest reads the Authorization header; websocket upgrades may pass
// the token as ?token= because browsers cannot set headers on them.
func tokenFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if websocket.IsWebSocketUpgrade(r) {
			if t := r.URL.Query().Get("token"); t != "" {
				return t, nil
			}
		}
		return "", fmt.Errorf("Missing token")
	}
	if !strings.HasPrefix(header, "Bearer ") || len(header) < 8 {
		return "", fmt.Errorf("Invalid token format")
	}
	return header[7:], nil
}

func withClaims(r *http.Request, claims *Claims) *http.Request {
	ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, globals.RoleKey, claims.Role)
	return r.WithContext(ctx)
}

func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString, err := tokenFromRequest(r)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		claims, err := a.ValidateJWT(tokenString)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
			return
		}
		next(w, withClaims(r, claims), ps)
	}
}

// OptionalAuth attaches the caller when a valid token is present and otherwise
// proceeds anonymously.
func (a *Auth) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if tokenString, err := tokenFromRequest(r); err == nil {
			if claims, err := a.ValidateJWT(tokenString); err == nil {
				r = withClaims(r, claims)
			}
		}
		next(w, r, ps)
	}
}

// RequireRoles rejects callers whose role is not listed. It must run after
// Authenticate.
func RequireRoles(roles ...string) Middleware {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			if !slices.Contains(roles, utils.GetRoleFromRequest(r)) {
				utils.RespondWithError(w, http.StatusForbidden, "forbidden", "Forbidden")
				return
			}
			next(w, r, ps)
		}
	}
}

// NewToken signs a token for userID with role. The identity service owns token
// issuance in production; this exists for tooling and tests.
func NewToken(secret []byte, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
