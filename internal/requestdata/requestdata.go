package requestdata

import (
	"context"

	"github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData is the authenticated principal attached to each request:
// a stable user id plus the display name and role claimed at login.
type RequestData struct {
	TokenString string
	UserID      uuid.UUID
	DisplayName string
	Role        string // "student" or "sa"
}
