package graph

import (
	"context"
	"errors"

	"linepay-be/internal/middleware"
	"linepay-be/internal/utils"

	"github.com/99designs/gqlgen/graphql"
	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden: admin only")
)

// AuthDirective guards fields marked @auth. Claims are put on the context
// by middleware.AuthMiddleware; a field without a role needs any signed-in
// user.
func AuthDirective(ctx context.Context, obj any, next graphql.Resolver, role *Role) (any, error) {
	claims, ok := ctx.Value(middleware.TokenClaimsKey).(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthorized
	}

	userRole, _ := claims["role"].(string)
	if userRole == "" {
		return nil, ErrUnauthorized
	}

	required := RoleUser
	if role != nil {
		required = *role
	}
	if required == RoleAdmin && userRole != utils.RoleAdmin {
		return nil, ErrForbidden
	}
	return next(ctx)
}
