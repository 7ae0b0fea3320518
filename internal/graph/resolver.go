package graph

import (
	"context"
	"net/http"

	"linepay-be/internal/metrics"
	"linepay-be/internal/order"
	"linepay-be/internal/payment"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/google/uuid"
)

// OrderReader is the read side of the order store the back office needs.
type OrderReader interface {
	GetByGUID(ctx context.Context, guid uuid.UUID) (*order.Order, error)
	ListNotes(ctx context.Context, orderID int64) ([]order.Note, error)
}

// Payments is what the back office drives on payment.Processor.
type Payments interface {
	Refund(ctx context.Context, in payment.RefundInput) (*payment.RefundResult, error)
	Capabilities() payment.Capabilities
}

type Resolver struct {
	Orders   OrderReader
	Payments Payments
	Stats    *metrics.GatewayStats
}

type Config struct {
	Resolvers  *Resolver
	Directives DirectiveRoot
}

type DirectiveRoot struct {
	Auth func(ctx context.Context, obj any, next graphql.Resolver, role *Role) (res any, err error)
}

func NewSchema(r *Resolver) graphql.ExecutableSchema {
	return NewExecutableSchema(Config{
		Resolvers: r,
		Directives: DirectiveRoot{
			Auth: AuthDirective,
		},
	})
}

// NewHandler serves the back-office schema over POST only.
func NewHandler(r *Resolver) http.Handler {
	srv := handler.New(NewSchema(r))
	srv.AddTransport(transport.POST{})
	return srv
}
