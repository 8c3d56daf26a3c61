package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

// ClaimsKey ключ для хранения проверенных claims в контексте
const ClaimsKey contextKey = "claims"

// WithClaims добавляет claims в контекст запроса
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims извлекает claims из контекста запроса
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok && claims != nil
}
