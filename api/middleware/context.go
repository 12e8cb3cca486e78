package middleware

import (
	"context"

	"github.com/angelmondragon/ims-backend/pkg/authz"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/google/uuid"
)

type contextKey string

const (
	ctxEmployeeID contextKey = "employee_id"
	ctxRole       contextKey = "actor_role"
	ctxAccessID   contextKey = "access_id"
)

func EmployeeIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxEmployeeID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// AccessIDFromContext returns the jti of the token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext rebuilds the authenticated caller. ok is false on
// unauthenticated requests.
func ActorFromContext(ctx context.Context) (authz.Actor, bool) {
	id, err := uuid.Parse(EmployeeIDFromContext(ctx))
	if err != nil {
		return authz.Actor{}, false
	}
	role, err := enums.ParseEmployeeRole(RoleFromContext(ctx))
	if err != nil {
		return authz.Actor{}, false
	}
	return authz.Actor{EmployeeID: id, Role: role}, true
}

// WithActor injects the caller into the context. Used by Auth and tests.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxEmployeeID, actor.EmployeeID.String())
	return context.WithValue(ctx, ctxRole, string(actor.Role))
}
