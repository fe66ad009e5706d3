package analytics_api

import (
	"fmt"
	"net/http"

	"ms-booking-finance/internal/auth"
	"ms-booking-finance/internal/utils"
)

// verifySchoolScope rejects tokens bound to a different school
func (h *Handler) verifySchoolScope(w http.ResponseWriter, r *http.Request, schoolID int64) bool {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil || claims.SchoolID == 0 || claims.SchoolID == schoolID {
		return true
	}

	h.Logger.LogSecurity("SCHOOL_SCOPE", fmt.Sprintf("user %s of school %d denied analytics of school %d", claims.Subject, claims.SchoolID, schoolID))
	h.write(w, http.StatusForbidden, utils.ErrorResponse("Forbidden", "token is not valid for this school"))
	return false
}
