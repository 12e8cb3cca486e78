package enums

import "fmt"

// DeviceType classifies catalog entries.
type DeviceType string

const (
	DeviceTypeLaptop   DeviceType = "laptop"
	DeviceTypeDesktop  DeviceType = "desktop"
	DeviceTypeMonitor  DeviceType = "monitor"
	DeviceTypeKeyboard DeviceType = "keyboard"
	DeviceTypeMouse    DeviceType = "mouse"
	DeviceTypeHeadset  DeviceType = "headset"
	DeviceTypePhone    DeviceType = "phone"
	DeviceTypeTablet   DeviceType = "tablet"
	DeviceTypeOther    DeviceType = "other"
)

var validDeviceTypes = []DeviceType{
	DeviceTypeLaptop,
	DeviceTypeDesktop,
	DeviceTypeMonitor,
	DeviceTypeKeyboard,
	DeviceTypeMouse,
	DeviceTypeHeadset,
	DeviceTypePhone,
	DeviceTypeTablet,
	DeviceTypeOther,
}

// DeviceTypes returns every device type in declaration order.
func DeviceTypes() []DeviceType {
	return append([]DeviceType(nil), validDeviceTypes...)
}

// String implements fmt.Stringer.
func (d DeviceType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeviceType.
func (d DeviceType) IsValid() bool {
	for _, candidate := range validDeviceTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeviceType converts raw input into a DeviceType.
func ParseDeviceType(value string) (DeviceType, error) {
	for _, candidate := range validDeviceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid device type %q", value)
}

// DeviceStatus is derived from the assignments referencing a device, apart
// from the explicit maintenance/available/retired operations.
type DeviceStatus string

const (
	DeviceStatusAvailable   DeviceStatus = "available"
	DeviceStatusAssigned    DeviceStatus = "assigned"
	DeviceStatusMaintenance DeviceStatus = "maintenance"
	DeviceStatusRetired     DeviceStatus = "retired"
)

var validDeviceStatuses = []DeviceStatus{
	DeviceStatusAvailable,
	DeviceStatusAssigned,
	DeviceStatusMaintenance,
	DeviceStatusRetired,
}

// DeviceStatuses returns the canonical ordering used by dashboards.
func DeviceStatuses() []DeviceStatus {
	return append([]DeviceStatus(nil), validDeviceStatuses...)
}

// String implements fmt.Stringer.
func (d DeviceStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeviceStatus.
func (d DeviceStatus) IsValid() bool {
	for _, candidate := range validDeviceStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeviceStatus converts raw input into a DeviceStatus.
func ParseDeviceStatus(value string) (DeviceStatus, error) {
	for _, candidate := range validDeviceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid device status %q", value)
}

// DeviceCondition grades the physical state of a device.
type DeviceCondition string

const (
	DeviceConditionNew       DeviceCondition = "new"
	DeviceConditionExcellent DeviceCondition = "excellent"
	DeviceConditionGood      DeviceCondition = "good"
	DeviceConditionFair      DeviceCondition = "fair"
	DeviceConditionPoor      DeviceCondition = "poor"
)

var validDeviceConditions = []DeviceCondition{
	DeviceConditionNew,
	DeviceConditionExcellent,
	DeviceConditionGood,
	DeviceConditionFair,
	DeviceConditionPoor,
}

// String implements fmt.Stringer.
func (d DeviceCondition) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeviceCondition.
func (d DeviceCondition) IsValid() bool {
	for _, candidate := range validDeviceConditions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeviceCondition converts raw input into a DeviceCondition.
func ParseDeviceCondition(value string) (DeviceCondition, error) {
	for _, candidate := range validDeviceConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid device condition %q", value)
}
