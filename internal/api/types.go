package api

import "time"

// Identity is the payload returned by the backend on a successful login or
// registration. All four fields are stored into the session together.
type Identity struct {
	Email        string `json:"email"`
	Organisation string `json:"org"`
	Role         string `json:"role"`
	Name         string `json:"name"`
}

// Device is a dispensing device as listed by /devices and /admindevices.
type Device struct {
	DeviceID       string `json:"device_id"`
	Name           string `json:"name"`
	OrganisationID *int64 `json:"organisation_id,omitempty"`
}

// Unit is a dispensing unit as listed by /units. Units carry numeric IDs
// while devices use string IDs; otherwise they are interchangeable.
type Unit struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Reading is a single timestamped volume measurement. DeviceID and DevicePK
// are only populated by the unit raw-data endpoint.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	VolumeML  float64   `json:"volume_ml"`
	DeviceID  string    `json:"device_id,omitempty"`
	DevicePK  int64     `json:"device_pk,omitempty"`
}

// HistogramPoint is one server-side histogram bucket from
// /data/{id}/histogram?interval=day.
type HistogramPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	TotalVolume float64   `json:"total_volume"`
}

// Organisation is a tenant record. Notes is nullable on the wire.
type Organisation struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Notes *string `json:"notes,omitempty"`
}

// User is a backend user account. The role column is historically named
// roles_id.
type User struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	OrganisationID *int64 `json:"organisation_id,omitempty"`
	RolesID        *int64 `json:"roles_id,omitempty"`
}

// Role is a backend role as listed by /roles.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
