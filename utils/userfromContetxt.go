package utils

import (
	"net/http"

	"storefront/globals"
	"storefront/models"
)

func GetUserIDFromRequest(r *http.Request) string {
	ctx := r.Context()
	requestingUserID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

func GetRoleFromRequest(r *http.Request) string {
	role, _ := r.Context().Value(globals.RoleKey).(string)
	return role
}

// GetPrincipalFromRequest returns the caller placed in the context by
// middleware.Authenticate. The zero Principal means anonymous.
func GetPrincipalFromRequest(r *http.Request) models.Principal {
	return models.Principal{
		UserID: GetUserIDFromRequest(r),
		Role:   GetRoleFromRequest(r),
	}
}
