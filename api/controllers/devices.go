package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/ims-backend/api/responses"
	"github.com/angelmondragon/ims-backend/api/validators"
	"github.com/angelmondragon/ims-backend/internal/devices"
	"github.com/angelmondragon/ims-backend/pkg/authz"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
	"github.com/angelmondragon/ims-backend/pkg/logger"
	"github.com/google/uuid"
)

func DevicesCreate(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "device")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body devices.CreateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func DevicesUpdate(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "device")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "deviceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body devices.UpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Update(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func DevicesList(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "device")
			return
		}
		params, err := deviceListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func DevicesAvailable(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "device")
			return
		}
		params, err := deviceListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Available(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func deviceListParams(r *http.Request) (devices.ListParams, error) {
	page, err := validators.ParsePage(r)
	if err != nil {
		return devices.ListParams{}, err
	}
	status, err := validators.ParseQueryEnum(r, "status", enums.ParseDeviceStatus)
	if err != nil {
		return devices.ListParams{}, err
	}
	deviceType, err := validators.ParseQueryEnum(r, "device_type", enums.ParseDeviceType)
	if err != nil {
		return devices.ListParams{}, err
	}
	condition, err := validators.ParseQueryEnum(r, "condition", enums.ParseDeviceCondition)
	if err != nil {
		return devices.ListParams{}, err
	}
	return devices.ListParams{
		Params:     page,
		Status:     status,
		DeviceType: deviceType,
		Condition:  condition,
		Search:     validators.QueryString(r, "search", 100),
	}, nil
}

func DevicesGet(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "device")
			return
		}
		id, err := validators.URLParamUUID(r, "deviceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type deviceAction func(ctx context.Context, actor authz.Actor, id uuid.UUID) (*devices.DeviceDTO, error)

// deviceStatusHandler serves the body-less mark_* endpoints.
func deviceStatusHandler(action deviceAction, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "deviceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := action(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func DevicesMarkMaintenance(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return func(w http.ResponseWriter, r *http.Request) { unavailable(w, r, logg, "device") }
	}
	return deviceStatusHandler(svc.MarkMaintenance, logg)
}

func DevicesMarkAvailable(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return func(w http.ResponseWriter, r *http.Request) { unavailable(w, r, logg, "device") }
	}
	return deviceStatusHandler(svc.MarkAvailable, logg)
}

func DevicesMarkRetired(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return func(w http.ResponseWriter, r *http.Request) { unavailable(w, r, logg, "device") }
	}
	return deviceStatusHandler(svc.MarkRetired, logg)
}

func DevicesDelete(svc devices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "device")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "deviceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DevicesUploadImage accepts a multipart "image" file.
func DevicesUploadImage(svc devices.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "device")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "deviceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := validators.ParseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		data, err := validators.FormFile(r, "image", maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if data == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "image is required").
				WithDetails(map[string]string{"image": "is required"}))
			return
		}

		dto, err := svc.UploadImage(r.Context(), actor, id, data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
