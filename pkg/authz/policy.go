// Package authz centralizes which employee roles may perform which operations.
// Handlers and services ask for a Capability instead of comparing role strings.
package authz

import (
	"fmt"

	"github.com/angelmondragon/ims-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
	"github.com/google/uuid"
)

// Capability names one guarded operation family.
type Capability string

const (
	// CapDevicesManage covers device create/update/delete and status overrides.
	CapDevicesManage Capability = "devices:manage"
	// CapAssignmentsApprove covers both evidence-gated approvals, incident
	// reports and creating assignments directly in the active state.
	CapAssignmentsApprove Capability = "assignments:approve"
	// CapAssignmentsViewAll lifts the own-records-only filter on assignments.
	CapAssignmentsViewAll Capability = "assignments:view_all"
	// CapAssignmentsOnBehalf allows creating assignments for other employees.
	CapAssignmentsOnBehalf Capability = "assignments:on_behalf"
	// CapTicketsManage covers ticket assignment and resolving any ticket.
	CapTicketsManage Capability = "tickets:manage"
	// CapTicketsViewAll lifts the requester/assignee filter on tickets.
	CapTicketsViewAll Capability = "tickets:view_all"
	// CapEmployeesManage covers the administrative employee directory.
	CapEmployeesManage Capability = "employees:manage"
)

var grants = map[enums.EmployeeRole]map[Capability]struct{}{
	enums.EmployeeRoleAdmin: set(
		CapDevicesManage,
		CapAssignmentsApprove,
		CapAssignmentsViewAll,
		CapAssignmentsOnBehalf,
		CapTicketsManage,
		CapTicketsViewAll,
		CapEmployeesManage,
	),
	enums.EmployeeRoleManager: set(
		CapAssignmentsApprove,
		CapAssignmentsViewAll,
		CapAssignmentsOnBehalf,
		CapTicketsManage,
		CapTicketsViewAll,
	),
	enums.EmployeeRoleEmployee: set(),
}

var denials = map[Capability]string{
	CapDevicesManage:       "only admins can manage devices",
	CapAssignmentsApprove:  "only admin/manager can approve assignments",
	CapAssignmentsViewAll:  "only admin/manager can view all assignments",
	CapAssignmentsOnBehalf: "only admin/manager can create assignments for other employees",
	CapTicketsManage:       "only admin/manager can manage tickets",
	CapTicketsViewAll:      "only admin/manager can view all tickets",
	CapEmployeesManage:     "only admins can manage employees",
}

func set(caps ...Capability) map[Capability]struct{} {
	out := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		out[c] = struct{}{}
	}
	return out
}

// Can reports whether role holds the capability. Unknown roles hold nothing.
func Can(role enums.EmployeeRole, capability Capability) bool {
	caps, ok := grants[role]
	if !ok {
		return false
	}
	_, ok = caps[capability]
	return ok
}

// Require returns a FORBIDDEN error when role lacks the capability.
func Require(role enums.EmployeeRole, capability Capability) error {
	if Can(role, capability) {
		return nil
	}
	msg, ok := denials[capability]
	if !ok {
		msg = fmt.Sprintf("missing capability %s", capability)
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, msg)
}

// Actor is the authenticated caller as seen by services.
type Actor struct {
	EmployeeID uuid.UUID
	Role       enums.EmployeeRole
}

// Is reports whether the actor is the given employee.
func (a Actor) Is(employeeID uuid.UUID) bool {
	return a.EmployeeID != uuid.Nil && a.EmployeeID == employeeID
}

// Can is shorthand for authz.Can(a.Role, capability).
func (a Actor) Can(capability Capability) bool {
	return Can(a.Role, capability)
}

// Require is shorthand for authz.Require(a.Role, capability).
func (a Actor) Require(capability Capability) error {
	return Require(a.Role, capability)
}
