package model

import "time"

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Position is a geolocation fix.
type Position struct {
	Coordinates
	Timestamp time.Time `json:"timestamp"`
}

// Bounds is the rectangle enclosing a set of coordinates.
type Bounds struct {
	SouthWest Coordinates `json:"southWest"`
	NorthEast Coordinates `json:"northEast"`
}

// BoundsOf returns the bounding box of pts. ok is false for an empty set.
func BoundsOf(pts []Coordinates) (b Bounds, ok bool) {
	if len(pts) == 0 {
		return Bounds{}, false
	}
	b = Bounds{SouthWest: pts[0], NorthEast: pts[0]}
	for _, p := range pts[1:] {
		b.SouthWest.Lat = min(b.SouthWest.Lat, p.Lat)
		b.SouthWest.Lng = min(b.SouthWest.Lng, p.Lng)
		b.NorthEast.Lat = max(b.NorthEast.Lat, p.Lat)
		b.NorthEast.Lng = max(b.NorthEast.Lng, p.Lng)
	}
	return b, true
}

// OnlineStatus is a device's connectivity state.
type OnlineStatus string

// Device connectivity states.
const (
	DeviceOnline  OnlineStatus = "online"
	DeviceOffline OnlineStatus = "offline"
	DeviceUnknown OnlineStatus = "unknown"
)

// DeviceLocation is one tracked device as of the latest roster poll.
type DeviceLocation struct {
	DeviceID          string       `json:"deviceId"`
	Coordinates       Coordinates  `json:"coordinates"`
	Online            OnlineStatus `json:"onlineStatus"`
	Health            SeverityTier `json:"healthSeverity"`
	AssignedPatientID PatientID    `json:"assignedPatientId,omitempty"`
	PatientCode       string       `json:"patientCode,omitempty"`
	SignalStrength    int          `json:"signalStrength"`
}

// FocusKind names what the live map is centred on.
type FocusKind string

// Focus kinds.
const (
	FocusNone           FocusKind = "none"
	FocusSelfLocation   FocusKind = "self_location"
	FocusSelectedDevice FocusKind = "selected_device"
	FocusCriticalBounds FocusKind = "critical_bounds"
)

// FocusTarget is the single current map focus.
type FocusTarget struct {
	Kind        FocusKind    `json:"kind"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	DeviceIDs   []string     `json:"deviceIds,omitempty"`
	Bounds      *Bounds      `json:"bounds,omitempty"`
}
