package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"linepay-be/internal/logger"
	"linepay-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const TokenClaimsKey contextKey = "jwtClaims"

var ErrInvalidToken = errors.New("invalid token")

const accessTokenCookie = "access_token"

// extractAccessToken prefers the access_token cookie and falls back to a
// bearer Authorization header.
func extractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	tokenStr, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return tokenStr
}

// parseToken checks an HS256 token and returns its claims.
func parseToken(secret []byte, tokenStr string) (jwt.MapClaims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AuthMiddleware attaches the caller identity when a valid token is
// present and lets anonymous requests through untouched.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractAccessToken(r)
			if tokenStr == "" || len(secret) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := parseToken(secret, tokenStr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin rejects requests without a valid token carrying the ADMIN
// role. An empty secret closes the route entirely.
func RequireAdmin(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(secret) == 0 {
				logger.FromCtx(r.Context()).Error("admin route called but SECRET_KEY is not set")
				utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := parseToken(secret, extractAccessToken(r))
			if err != nil {
				utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := withClaims(r.Context(), claims)
			if !utils.IsAdmin(ctx) {
				userID, _ := utils.GetUserIDFromContext(ctx)
				logger.FromCtx(ctx).Warn("non-admin caller rejected", zap.String("user_id", userID))
				utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func withClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	ctx = context.WithValue(ctx, TokenClaimsKey, claims)
	sub, _ := claims.GetSubject()
	role, _ := claims["role"].(string)
	return utils.SetUserContext(ctx, sub, role)
}
