package utils

import (
	"context"
	"net/http"

	"mahlzeit/globals"
)

func GetUserIDFromContext(ctx context.Context) string {
	requestingUserID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

func GetUserIDFromRequest(r *http.Request) string {
	return GetUserIDFromContext(r.Context())
}

func GetUserNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(globals.UserNameKey).(string)
	return name
}

func GetTokenIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(globals.TokenIDKey).(string)
	return id
}
