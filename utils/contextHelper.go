package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/pos_backend/appctx"
)

type contextKey = appctx.ContextKey

var (
	tokenCtxKey         = appctx.ContextKeyToken
	accountIdCtxKey     = appctx.ContextKeyAccountId
	usernameCtxKey      = appctx.ContextKeyUsername
	userIdCtxKey        = appctx.ContextKeyUserId
	correlationIdCtxKey = appctx.ContextKeyCorrelationId
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, tokenCtxKey)
}

func GetAccountIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, accountIdCtxKey)
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, usernameCtxKey)
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, userIdCtxKey)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, correlationIdCtxKey)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, tokenCtxKey, token)
}

func SetAccountIdInContext(ctx context.Context, accountId string) context.Context {
	return appctx.Set(ctx, accountIdCtxKey, accountId)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, usernameCtxKey, username)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, userIdCtxKey, userId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, correlationIdCtxKey, correlationId)
}
