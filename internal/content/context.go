package content

import "context"

type contextKey string

const contentCtxKey contextKey = "content"

func SetContentInContext(ctx context.Context, c *Content) context.Context {
	return context.WithValue(ctx, contentCtxKey, c)
}

func GetContentFromContext(ctx context.Context) *Content {
	c, _ := ctx.Value(contentCtxKey).(*Content)
	return c
}
