package auth

import "context"

type contextKey string

const contextKeyUnit contextKey = "auth.unit_id"

// WithUnitID stores the authenticated unit id in context.
func WithUnitID(ctx context.Context, unitID string) context.Context {
	return context.WithValue(ctx, contextKeyUnit, unitID)
}

// UnitIDFromContext extracts the authenticated unit id from context.
func UnitIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if unitID, ok := ctx.Value(contextKeyUnit).(string); ok {
		return unitID
	}
	return ""
}
