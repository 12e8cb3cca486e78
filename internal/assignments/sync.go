package assignments

import "github.com/angelmondragon/ims-backend/pkg/enums"

// DeviceStatusAfter returns the device status implied by writing an
// assignment in status written. deviceHasActive reports whether any
// assignment on the device is active after the write. The result depends
// only on its inputs, so applying it twice changes nothing.
//
//	active, pending_approval  -> assigned
//	returned, pending_return  -> available unless another assignment is active
//	lost, damaged             -> maintenance
func DeviceStatusAfter(current enums.DeviceStatus, written enums.AssignmentStatus, deviceHasActive bool) enums.DeviceStatus {
	switch written {
	case enums.AssignmentStatusActive, enums.AssignmentStatusPendingApproval:
		return enums.DeviceStatusAssigned
	case enums.AssignmentStatusReturned, enums.AssignmentStatusPendingReturn:
		if deviceHasActive {
			return current
		}
		return enums.DeviceStatusAvailable
	case enums.AssignmentStatusLost, enums.AssignmentStatusDamaged:
		return enums.DeviceStatusMaintenance
	default:
		return current
	}
}
