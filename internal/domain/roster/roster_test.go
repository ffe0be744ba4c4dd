package roster

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/merge"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
)

const (
	patientA = "65f0c1d2e3a4b5c6d7e8f901"
	patientB = "65f0c1d2e3a4b5c6d7e8f902"
)

func item(id, deviceID string, lat, lng float64) model.Record {
	return model.Record{
		"_id":         id,
		"patientCode": "PT-" + deviceID,
		"device": map[string]any{
			"deviceId":       deviceID,
			"location":       map[string]any{"lat": lat, "lng": lng},
			"status":         "online",
			"signalStrength": -61.0,
		},
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	Convey("Given roster items with and without devices", t, func() {
		noCoords := item(patientB, "D2", 0, 0)
		delete(noCoords["device"].(map[string]any), "location")

		items := []model.Record{
			item(patientA, "D1", 37.5665, 126.978),
			noCoords,
			{"_id": "x", "name": "no device"},
			item(patientA, "D1", 1, 1),
		}

		res := Build(ctx, items, nil, nil)

		Convey("Then only located devices are kept once", func() {
			So(len(res.Devices), ShouldEqual, 1)
			So(res.Skipped, ShouldEqual, 2)
			d := res.Devices[0]
			So(d.DeviceID, ShouldEqual, "D1")
			So(d.Coordinates, ShouldResemble, model.Coordinates{Lat: 37.5665, Lng: 126.978})
			So(d.Online, ShouldEqual, model.DeviceOnline)
			So(d.SignalStrength, ShouldEqual, -61)
			So(d.AssignedPatientID, ShouldEqual, model.PatientID(patientA))
			So(d.PatientCode, ShouldEqual, "PT-D1")
		})
	})
}

func TestHealth(t *testing.T) {
	ctx := context.Background()

	Convey("Given a roster item with a baseline status", t, func() {
		it := item(patientA, "D1", 1, 1)
		it["status"] = "warning"

		Convey("When its vitals are normal", func() {
			it["vitals"] = map[string]any{"heartRate": 72.0, "respiratoryRate": 16.0}
			d, err := Device(it, nil)
			So(err, ShouldBeNil)

			Convey("Then the baseline is not lowered", func() {
				So(d.Health, ShouldEqual, model.Warning)
			})
		})

		Convey("When its own vitals are critical", func() {
			it["vitals"] = map[string]any{"heartRate": 130.0}
			d, _ := Device(it, nil)
			So(d.Health, ShouldEqual, model.Critical)
		})

		Convey("When only the merged vitals are known", func() {
			vitals := merge.Merge(ctx, nil, []model.Record{{"patientId": patientA, "value": 8.0}})
			res := Build(ctx, []model.Record{it}, vitals, nil)

			Convey("Then the merged reading upgrades the tier", func() {
				So(res.Devices[0].Health, ShouldEqual, model.Critical)
				So(res.Devices[0].DeviceID, ShouldEqual, "D1")
			})
		})
	})
}

func TestDeviceShapes(t *testing.T) {
	Convey("Given alternative device shapes", t, func() {
		Convey("Flat latitude and longitude with a boolean online flag", func() {
			d, err := Device(model.Record{
				"patientId": patientB,
				"assignedDevice": map[string]any{
					"serialNumber": "SN-9",
					"latitude":     "35.1",
					"longitude":    "129.0",
					"online":       false,
				},
			}, nil)
			So(err, ShouldBeNil)
			So(d.DeviceID, ShouldEqual, "SN-9")
			So(d.Online, ShouldEqual, model.DeviceOffline)
			So(d.AssignedPatientID, ShouldEqual, model.PatientID(patientB))
		})

		Convey("Out of range coordinates are rejected", func() {
			_, err := Device(item(patientA, "D1", 120, 10), nil)
			So(errors.Is(err, ErrNoCoordinates), ShouldBeTrue)
		})

		Convey("No device at all", func() {
			_, err := Device(model.Record{"_id": patientA}, nil)
			So(errors.Is(err, ErrNoDevice), ShouldBeTrue)
		})
	})
}
