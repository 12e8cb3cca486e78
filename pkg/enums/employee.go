package enums

import (
	"fmt"
	"strings"
)

// EmployeeRole drives every authorization decision in the API.
type EmployeeRole string

const (
	EmployeeRoleAdmin    EmployeeRole = "admin"
	EmployeeRoleManager  EmployeeRole = "manager"
	EmployeeRoleEmployee EmployeeRole = "employee"
)

var validEmployeeRoles = []EmployeeRole{
	EmployeeRoleAdmin,
	EmployeeRoleManager,
	EmployeeRoleEmployee,
}

// String implements fmt.Stringer.
func (r EmployeeRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known EmployeeRole.
func (r EmployeeRole) IsValid() bool {
	for _, candidate := range validEmployeeRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseEmployeeRole converts raw input into an EmployeeRole.
func ParseEmployeeRole(value string) (EmployeeRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validEmployeeRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid employee role %q", value)
}

// Department is the fixed set of organizational units.
type Department string

const (
	DepartmentIT         Department = "IT"
	DepartmentHR         Department = "HR"
	DepartmentFinance    Department = "Finance"
	DepartmentOperations Department = "Operations"
	DepartmentSales      Department = "Sales"
	DepartmentMarketing  Department = "Marketing"
)

var validDepartments = []Department{
	DepartmentIT,
	DepartmentHR,
	DepartmentFinance,
	DepartmentOperations,
	DepartmentSales,
	DepartmentMarketing,
}

// String implements fmt.Stringer.
func (d Department) String() string {
	return string(d)
}

// IsValid reports whether the value is a known Department.
func (d Department) IsValid() bool {
	for _, candidate := range validDepartments {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDepartment converts raw input into a Department.
func ParseDepartment(value string) (Department, error) {
	for _, candidate := range validDepartments {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid department %q", value)
}
