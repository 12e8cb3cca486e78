package controllers

import (
	"net/http"

	"github.com/angelmondragon/ims-backend/api/middleware"
	"github.com/angelmondragon/ims-backend/api/responses"
	"github.com/angelmondragon/ims-backend/pkg/authz"
	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
	"github.com/angelmondragon/ims-backend/pkg/logger"
)

// requireActor writes a 401 and returns false when the request carries no
// authenticated caller.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (authz.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return authz.Actor{}, false
	}
	return actor, true
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
