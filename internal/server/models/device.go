package models

import "time"

// Role is a user's standing on one device.
type Role string

const (
	RoleMaster      Role = "master"
	RoleContributor Role = "contributor"

	// RoleAdmin is never stored; it marks access granted through the
	// admin bypass.
	RoleAdmin Role = "admin"
)

// Device is a registered player. MasterEmail is the owner of record and
// the only source consulted for master-only operations.
type Device struct {
	ID           string
	FriendlyName string
	MasterEmail  string
	// DispatchEndpoint is the device's gRPC address for direct commands.
	// Empty until the device registers for dispatch.
	DispatchEndpoint string
	CreatedAt        time.Time
}

// Permission grants Email a role on DeviceID. Exactly one master
// permission exists per device and it matches Device.MasterEmail.
type Permission struct {
	Email     string
	DeviceID  string
	Role      Role
	AddedBy   string
	CreatedAt time.Time
}

// DeviceAccess is a device as seen by one user.
type DeviceAccess struct {
	Device
	Role Role
}

// Content is a playable item posted to a device. The bytes live in object
// storage under StorageKey.
type Content struct {
	ID          string
	DeviceID    string
	Title       string
	ContentType string
	StorageKey  string
	PostedBy    string
	CreatedAt   time.Time
}
