// Package roster derives device locations from the patient roster.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/identity"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/merge"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/severity"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

// ErrNoDevice and ErrNoCoordinates mark roster items that cannot be placed
// on the map.
var (
	ErrNoDevice      = errors.New("roster: item has no device")
	ErrNoCoordinates = errors.New("roster: device has no coordinates")
)

var (
	deviceKeys   = []string{"device", "assignedDevice"}
	deviceIDKeys = []string{"deviceId", "serialNumber", "_id", "id"}
	statusKeys   = []string{"status", "healthStatus", "severity"}
)

// Result is the outcome of one roster reconciliation.
type Result struct {
	Devices []model.DeviceLocation
	Skipped int
}

// Build places every roster item that carries a located device. vitals may
// be nil; it supplies current readings when the item has none of its own.
func Build(ctx context.Context, items []model.Record, vitals *merge.Result, log logger.Logger) Result {
	if log == nil {
		log = logger.NewNop()
	}
	res := Result{Devices: make([]model.DeviceLocation, 0, len(items))}
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		d, err := Device(item, vitals)
		if err != nil {
			res.Skipped++
			log.Debug(ctx, "skipping roster item", logger.Int("index", i), logger.Error(err))
			continue
		}
		if _, dup := seen[d.DeviceID]; dup {
			continue
		}
		seen[d.DeviceID] = struct{}{}
		res.Devices = append(res.Devices, d)
	}
	return res
}

// Device converts one roster item.
func Device(item model.Record, vitals *merge.Result) (model.DeviceLocation, error) {
	dev, ok := deviceOf(item)
	if !ok {
		return model.DeviceLocation{}, ErrNoDevice
	}
	id := dev.FirstString(deviceIDKeys...)
	if id == "" {
		return model.DeviceLocation{}, fmt.Errorf("%w: missing device id", ErrNoDevice)
	}
	c, ok := coordinates(dev)
	if !ok {
		if c, ok = coordinates(item); !ok {
			return model.DeviceLocation{}, fmt.Errorf("%w: %s", ErrNoCoordinates, id)
		}
	}

	d := model.DeviceLocation{
		DeviceID:          id,
		Coordinates:       c,
		Online:            onlineStatus(dev),
		AssignedPatientID: patientID(item),
		PatientCode:       item.FirstString(identity.KeyPatientCode, "code"),
	}
	if v, ok := dev.FirstFloat("signalStrength", "rssi", "signal"); ok {
		d.SignalStrength = int(v)
	}
	d.Health = health(item, d.AssignedPatientID, vitals)
	return d, nil
}

func deviceOf(item model.Record) (model.Record, bool) {
	for _, k := range deviceKeys {
		if sub, ok := item.Sub(k); ok {
			return sub, true
		}
	}
	if item.String("deviceId") != "" {
		return item, true
	}
	return nil, false
}

func coordinates(r model.Record) (model.Coordinates, bool) {
	if loc, ok := r.Sub("location"); ok {
		if c, ok := latLng(loc); ok {
			return c, true
		}
	}
	return latLng(r)
}

func latLng(r model.Record) (model.Coordinates, bool) {
	lat, ok1 := r.FirstFloat("lat", "latitude")
	lng, ok2 := r.FirstFloat("lng", "lon", "longitude")
	if !ok1 || !ok2 || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return model.Coordinates{}, false
	}
	return model.Coordinates{Lat: lat, Lng: lng}, true
}

func onlineStatus(dev model.Record) model.OnlineStatus {
	if b, ok := dev["online"].(bool); ok {
		if b {
			return model.DeviceOnline
		}
		return model.DeviceOffline
	}
	switch strings.ToLower(dev.FirstString("connectionStatus", "onlineStatus", "status")) {
	case "online", "connected", "active":
		return model.DeviceOnline
	case "offline", "disconnected", "inactive":
		return model.DeviceOffline
	default:
		return model.DeviceUnknown
	}
}

// patientID resolves the assigned patient. Roster items are patient records,
// so their own id counts as a candidate after the usual reference fields.
func patientID(item model.Record) model.PatientID {
	if id := identity.Resolve(item); !id.IsZero() {
		return id
	}
	code := identity.Code(item)
	for _, k := range []string{"_id", "id"} {
		if s := item.String(k); identity.IsCanonical(s, code) {
			return model.PatientID(s)
		}
	}
	return ""
}

// health combines the roster's own status with the item's vitals, falling
// back to the merged vitals for the assigned patient. It never lowers a tier.
func health(item model.Record, id model.PatientID, vitals *merge.Result) model.SeverityTier {
	baseline, _ := severity.Parse(item.FirstString(statusKeys...))

	src := item
	if sub, ok := item.Sub("vitals"); ok {
		src = sub
	}
	var tiers []model.SeverityTier
	hr, hasHR := src.FirstFloat("heartRate", "hr")
	rr, hasRR := src.FirstFloat("respiratoryRate", "rr")
	if (!hasHR || !hasRR) && !id.IsZero() {
		if rec, ok := vitals.Get(id); ok {
			if !hasHR {
				hr, hasHR = rec.Vital(model.HeartRate)
			}
			if !hasRR {
				rr, hasRR = rec.Vital(model.RespiratoryRate)
			}
		}
	}
	if hasHR {
		tiers = append(tiers, severity.HeartRate(hr))
	}
	if hasRR {
		tiers = append(tiers, severity.RespiratoryRate(rr))
	}
	return severity.Composite(baseline, tiers...)
}
