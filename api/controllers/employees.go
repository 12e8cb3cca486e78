package controllers

import (
	"net/http"

	"github.com/angelmondragon/ims-backend/api/responses"
	"github.com/angelmondragon/ims-backend/api/validators"
	"github.com/angelmondragon/ims-backend/internal/employees"
	"github.com/angelmondragon/ims-backend/pkg/enums"
	"github.com/angelmondragon/ims-backend/pkg/logger"
)

func EmployeesCreate(svc employees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "employee")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body employees.CreateInput
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

func EmployeesList(svc employees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "employee")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		params, err := employeeListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func employeeListParams(r *http.Request) (employees.ListParams, error) {
	page, err := validators.ParsePage(r)
	if err != nil {
		return employees.ListParams{}, err
	}
	role, err := validators.ParseQueryEnum(r, "role", enums.ParseEmployeeRole)
	if err != nil {
		return employees.ListParams{}, err
	}
	department, err := validators.ParseQueryEnum(r, "department", enums.ParseDepartment)
	if err != nil {
		return employees.ListParams{}, err
	}
	includeInactive, err := validators.ParseQueryBool(r, "include_inactive")
	if err != nil {
		return employees.ListParams{}, err
	}
	return employees.ListParams{
		Params:          page,
		Role:            role,
		Department:      department,
		Search:          validators.QueryString(r, "search", 100),
		IncludeInactive: includeInactive,
	}, nil
}

func EmployeesGet(svc employees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "employee")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "employeeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func EmployeesUpdate(svc employees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "employee")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "employeeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body employees.UpdateInput
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

func EmployeesDeactivate(svc employees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "employee")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "employeeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Deactivate(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
