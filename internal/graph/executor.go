package graph

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

//go:embed schema.graphqls
var schemaSource string

var parsedSchema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: schemaSource})

type fieldResolver func(ctx context.Context, args map[string]any) (any, error)

// executableSchema runs validated operations against the resolvers. The
// schema is small enough that fields are dispatched from a table instead of
// generated code.
type executableSchema struct {
	resolvers  map[string]fieldResolver
	directives DirectiveRoot
}

func NewExecutableSchema(cfg Config) graphql.ExecutableSchema {
	r := cfg.Resolvers
	return &executableSchema{
		resolvers: map[string]fieldResolver{
			"Query.orderNotes":          r.orderNotes,
			"Query.gatewayStats":        r.gatewayStats,
			"Query.paymentCapabilities": r.paymentCapabilities,
			"Mutation.refundOrder":      r.refundOrder,
		},
		directives: cfg.Directives,
	}
}

func (e *executableSchema) Schema() *ast.Schema {
	return parsedSchema
}

func (e *executableSchema) Complexity(ctx context.Context, typeName, field string, childComplexity int, args map[string]any) (int, bool) {
	return 0, false
}

func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	oc := graphql.GetOperationContext(ctx)

	first := true
	return func(ctx context.Context) *graphql.Response {
		if !first {
			return nil
		}
		first = false

		var root *ast.Definition
		switch oc.Operation.Operation {
		case ast.Query:
			root = parsedSchema.Query
		case ast.Mutation:
			root = parsedSchema.Mutation
		default:
			return graphql.ErrorResponse(ctx, "unsupported GraphQL operation")
		}

		ex := &execution{oc: oc}
		data, err := json.Marshal(e.resolveRoot(ctx, ex, root, oc.Operation.SelectionSet))
		if err != nil {
			return graphql.ErrorResponse(ctx, "failed to encode response")
		}
		return &graphql.Response{Data: data, Errors: ex.errs}
	}
}

type execution struct {
	oc   *graphql.OperationContext
	errs gqlerror.List
}

func (ex *execution) fail(alias string, err error) {
	ex.errs = append(ex.errs, &gqlerror.Error{
		Err:     err,
		Message: err.Error(),
		Path:    ast.Path{ast.PathName(alias)},
	})
}

// resolveRoot runs the top-level fields in document order; mutations are
// therefore serial.
func (e *executableSchema) resolveRoot(ctx context.Context, ex *execution, root *ast.Definition, sel ast.SelectionSet) object {
	fields := graphql.CollectFields(ex.oc, sel, []string{root.Name})
	out := make(object, 0, len(fields))

	for _, f := range fields {
		if f.Name == "__typename" {
			out = append(out, member{f.Alias, root.Name})
			continue
		}

		value, err := e.resolveField(ctx, ex, root, f)
		if err != nil {
			ex.fail(f.Alias, err)
			out = append(out, member{f.Alias, nil})
			continue
		}
		out = append(out, member{f.Alias, project(ex, f.Selections, value)})
	}
	return out
}

func (e *executableSchema) resolveField(ctx context.Context, ex *execution, root *ast.Definition, f graphql.CollectedField) (any, error) {
	def := root.Fields.ForName(f.Name)
	resolve, ok := e.resolvers[root.Name+"."+f.Name]
	if def == nil || !ok {
		return nil, fmt.Errorf("field %s.%s is not resolvable", root.Name, f.Name)
	}
	if f.Definition == nil {
		f.Definition = def
	}

	args := f.ArgumentMap(ex.oc.Variables)
	next := func(ctx context.Context) (any, error) {
		return resolve(ctx, args)
	}

	if d := def.Directives.ForName("auth"); d != nil && e.directives.Auth != nil {
		return e.directives.Auth(ctx, nil, next, directiveRole(d))
	}
	return next(ctx)
}

func directiveRole(d *ast.Directive) *Role {
	arg := d.Arguments.ForName("role")
	if arg == nil || arg.Value == nil {
		return nil
	}
	role := Role(arg.Value.Raw)
	return &role
}

// project narrows a resolved value to the fields the client selected.
func project(ex *execution, sel ast.SelectionSet, value any) any {
	switch v := value.(type) {
	case record:
		typeName, _ := v["__typename"].(string)
		fields := graphql.CollectFields(ex.oc, sel, []string{typeName})
		out := make(object, 0, len(fields))
		for _, f := range fields {
			out = append(out, member{f.Alias, project(ex, f.Selections, v[f.Name])})
		}
		return out
	case []record:
		list := make([]any, len(v))
		for i, r := range v {
			list[i] = project(ex, sel, r)
		}
		return list
	default:
		return v
	}
}

type member struct {
	key   string
	value any
}

// object keeps selection order in the encoded response.
type object []member

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
