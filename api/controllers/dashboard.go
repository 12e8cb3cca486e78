package controllers

import (
	"net/http"

	"github.com/angelmondragon/ims-backend/api/responses"
	"github.com/angelmondragon/ims-backend/internal/dashboard"
	"github.com/angelmondragon/ims-backend/pkg/logger"
)

func DashboardStats(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "dashboard")
			return
		}
		if _, ok := requireActor(w, r, logg); !ok {
			return
		}

		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
