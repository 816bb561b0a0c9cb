// Package middleware provides the HTTP middleware chain: authentication,
// rate limiting, CORS, metrics and request logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garagemint/garagemint/internal/errors"
	"github.com/garagemint/garagemint/internal/httputil"
	"github.com/garagemint/garagemint/internal/logging"
)

// Claims are the JWT claims carried by player tokens. The wallet address
// travels in the token so draws can mint to it without a profile lookup.
type Claims struct {
	WalletAddress string `json:"wallet_address,omitempty"`
	Role          string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies bearer tokens. Tokens are verified locally against
// the shared HMAC secret; when no secret is configured, verification falls
// back to the auth provider's user endpoint.
type AuthMiddleware struct {
	secret    []byte
	provider  *httputil.AuthClient
	logger    *logging.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates an authentication middleware.
func NewAuthMiddleware(secret []byte, provider *httputil.AuthClient, logger *logging.Logger, skipPaths []string) *AuthMiddleware {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}

	return &AuthMiddleware{
		secret:    secret,
		provider:  provider,
		logger:    logger,
		skipPaths: skip,
	}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondError(w, r, errors.Unauthorized("missing Authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			m.respondError(w, r, errors.Unauthorized("invalid Authorization header format"))
			return
		}

		tokenString := parts[1]

		identity, err := m.verify(r.Context(), tokenString)
		if err != nil {
			m.logger.WithContext(r.Context()).WithError(err).Warn("token verification failed")
			m.respondError(w, r, err)
			return
		}

		ctx := logging.WithUserID(r.Context(), identity.userID)
		if identity.wallet != "" {
			ctx = logging.WithWallet(ctx, identity.wallet)
		}
		if identity.role != "" {
			ctx = context.WithValue(ctx, logging.RoleKey, identity.role)
		}

		m.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"user_id": identity.userID,
		}).Debug("authentication successful")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type identity struct {
	userID string
	wallet string
	role   string
}

func (m *AuthMiddleware) verify(ctx context.Context, tokenString string) (*identity, error) {
	if len(m.secret) > 0 {
		return m.verifyLocal(tokenString)
	}
	if m.provider != nil {
		return m.verifyRemote(ctx, tokenString)
	}
	return nil, errors.Configuration("no token verification method configured")
}

// verifyLocal validates an HMAC-signed token against the shared secret.
func (m *AuthMiddleware) verifyLocal(tokenString string) (*identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.InvalidToken(nil).WithDetails("method", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, errors.InvalidToken(err)
	}
	if !token.Valid {
		return nil, errors.InvalidToken(nil)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "invalid claims type")
	}
	if claims.Subject == "" {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "missing subject")
	}

	return &identity{
		userID: claims.Subject,
		wallet: claims.WalletAddress,
		role:   claims.Role,
	}, nil
}

// verifyRemote resolves the token through the auth provider.
func (m *AuthMiddleware) verifyRemote(ctx context.Context, tokenString string) (*identity, error) {
	user, err := m.provider.GetUser(ctx, tokenString)
	if err != nil {
		return nil, errors.InvalidToken(err)
	}
	return &identity{
		userID: user.ID,
		wallet: user.UserMetadata.WalletAddress,
		role:   user.Role,
	}, nil
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("authentication failed", err)
	}

	httputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)

	m.logger.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
	}).Warn("authentication failed")
}

// GetUserID extracts the user ID from context.
func GetUserID(ctx context.Context) string {
	return logging.GetUserID(ctx)
}

// GetWallet extracts the wallet address from context.
func GetWallet(ctx context.Context) string {
	return logging.GetWallet(ctx)
}

// RequireUserID ensures an authenticated user ID is present in context.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			httputil.Unauthorized(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
