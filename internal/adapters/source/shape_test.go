package source

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const overviewPayload = `{
  "summary": {"totalPatients": 2, "critical": 1},
  "alerts": [{"_id": "a1", "severity": "HIGH"}, "junk"],
  "vitals": {
    "heartRate": [{"patientId": "65f0c1d2e3a4b5c6d7e8f901", "value": 105}],
    "respiratoryRate": []
  }
}`

func TestDetectShape(t *testing.T) {
	Convey("Given the three tolerated shapes", t, func() {
		flat := []byte(overviewPayload)
		env := []byte(`{"success": true, "data": ` + overviewPayload + `}`)
		double := []byte(`{"success": true, "data": {"data": ` + overviewPayload + `}}`)

		for _, c := range []struct {
			body []byte
			kind ShapeKind
		}{{flat, ShapeFlat}, {env, ShapeEnvelope}, {double, ShapeDoubleEnvelope}} {
			o, err := DecodeOverview(c.body)
			So(err, ShouldBeNil)
			So(o.Shape, ShouldEqual, c.kind)
			So(len(o.Alerts), ShouldEqual, 1)
			So(o.Dropped, ShouldEqual, 1)
			So(len(o.HeartRate), ShouldEqual, 1)
			So(len(o.RespiratoryRate), ShouldEqual, 0)
			v, ok := o.HeartRate[0].Float("value")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 105)
			So(o.Summary, ShouldNotBeNil)
		}
	})

	Convey("Given a rejected envelope", t, func() {
		_, err := DetectShape([]byte(`{"success": false, "message": "token expired"}`))
		So(errors.Is(err, ErrSourceRejected), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "token expired")
	})

	Convey("Given unknown shapes", t, func() {
		for _, body := range []string{`"hello"`, `42`, `{"success": true, "data": 3}`, `not json`} {
			_, err := DetectShape([]byte(body))
			So(errors.Is(err, ErrShapeMismatch), ShouldBeTrue)
		}

		_, err := DecodeOverview([]byte(`{"unrelated": true}`))
		So(errors.Is(err, ErrShapeMismatch), ShouldBeTrue)

		_, err = DecodeOverview([]byte(`[]`))
		So(errors.Is(err, ErrShapeMismatch), ShouldBeTrue)
	})
}

func TestDecodeOverviewTopLevelVitals(t *testing.T) {
	Convey("Given an overview with vitals at the top level only", t, func() {
		body := `{"heartRate": [{"patientId": "65f0c1d2e3a4b5c6d7e8f901", "value": 88}],
		          "respiratoryRate": [{"patientId": "65f0c1d2e3a4b5c6d7e8f901", "value": 14}]}`

		Convey("Then both series are read flat or enveloped", func() {
			for _, b := range []string{body, `{"success": true, "data": ` + body + `}`} {
				o, err := DecodeOverview([]byte(b))
				So(err, ShouldBeNil)
				So(len(o.HeartRate), ShouldEqual, 1)
				So(len(o.RespiratoryRate), ShouldEqual, 1)
				So(o.Summary, ShouldBeNil)
				So(o.Alerts, ShouldBeEmpty)
			}
		})

		Convey("When only one series is present", func() {
			o, err := DecodeOverview([]byte(`{"respiratoryRate": []}`))
			So(err, ShouldBeNil)
			So(o.HeartRate, ShouldBeEmpty)
		})
	})
}

func TestDecodeRoster(t *testing.T) {
	Convey("Given roster bodies", t, func() {
		r, err := DecodeRoster([]byte(`{"patients": [{"_id": "p"}]}`))
		So(err, ShouldBeNil)
		So(len(r.Patients), ShouldEqual, 1)

		r, err = DecodeRoster([]byte(`{"success": true, "data": [{"_id": "p"}, {"_id": "q"}]}`))
		So(err, ShouldBeNil)
		So(r.Shape, ShouldEqual, ShapeEnvelope)
		So(len(r.Patients), ShouldEqual, 2)

		_, err = DecodeRoster([]byte(`{"success": true, "data": {"nothing": 1}}`))
		So(errors.Is(err, ErrShapeMismatch), ShouldBeTrue)
	})
}

func TestDecodeAlertPage(t *testing.T) {
	Convey("Given an alert page with the legacy totalCount", t, func() {
		pg, err := DecodeAlertPage([]byte(`{"success": true, "data": {"alerts": [{"_id": "1"}], "totalCount": 41, "limit": 20, "page": 1}}`))
		So(err, ShouldBeNil)
		So(pg.Total, ShouldEqual, 41)
		So(pg.TotalPages, ShouldEqual, 3)
		So(pg.Page, ShouldEqual, 1)
	})

	Convey("Given a double envelope with a list and pagination", t, func() {
		pg, err := DecodeAlertPage([]byte(`{"success": true, "data": {"data": [{"_id": "1"}, {"_id": "2"}], "pagination": {"total": 2, "limit": 10, "page": 1, "totalPages": 1}}}`))
		So(err, ShouldBeNil)
		So(pg.Shape, ShouldEqual, ShapeDoubleEnvelope)
		So(len(pg.Alerts), ShouldEqual, 2)
		So(pg.Total, ShouldEqual, 2)
		So(pg.TotalPages, ShouldEqual, 1)
	})

	Convey("Given a bare list", t, func() {
		pg, err := DecodeAlertPage([]byte(`[{"_id": "1"}]`))
		So(err, ShouldBeNil)
		So(pg.Total, ShouldEqual, 1)
	})
}
