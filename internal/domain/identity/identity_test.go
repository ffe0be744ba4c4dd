package identity_test

import (
	"testing"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/identity"
	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	directID = "65f1c0a2e4b0a1b2c3d4e5f6aa"
	nestedID = "65f1c0a2e4b0a1b2c3d4e5f6bb"
	refID    = "65f1c0a2e4b0a1b2c3d4e5f6cc"
)

func TestResolvePriority(t *testing.T) {
	Convey("Given records carrying ids in several places", t, func() {
		Convey("When both a direct and a nested id are valid", func() {
			rec := model.Record{
				"patientId": directID,
				"patient":   map[string]any{"_id": nestedID},
			}

			Convey("Then the direct id wins", func() {
				So(identity.Resolve(rec), ShouldEqual, model.PatientID(directID))
			})
		})

		Convey("When the direct id is too short", func() {
			rec := model.Record{
				"patientId": "P-01",
				"patient":   map[string]any{"_id": nestedID},
			}

			Convey("Then the nested id is used", func() {
				So(identity.Resolve(rec), ShouldEqual, model.PatientID(nestedID))
			})
		})

		Convey("When the id only lives under the alternate nested key", func() {
			rec := model.Record{"patientInfo": map[string]any{"id": nestedID}}
			So(identity.Resolve(rec), ShouldEqual, model.PatientID(nestedID))
		})

		Convey("When the id lives inside an object reference", func() {
			rec := model.Record{"patientRef": map[string]any{"id": refID}}
			So(identity.Resolve(rec), ShouldEqual, model.PatientID(refID))
		})

		Convey("When the reference is a plain string", func() {
			rec := model.Record{"patientRef": refID}
			So(identity.Resolve(rec), ShouldEqual, model.PatientID(refID))
		})

		Convey("When nested ids outrank references", func() {
			rec := model.Record{
				"patient":    map[string]any{"_id": nestedID},
				"patientRef": refID,
			}
			So(identity.Resolve(rec), ShouldEqual, model.PatientID(nestedID))
		})
	})
}

func TestResolveRejectsCodes(t *testing.T) {
	Convey("Given a record whose only id-shaped string is its own code", t, func() {
		code := "WARD-A-BED-0000000000012"
		rec := model.Record{
			"patientCode": code,
			"patientRef":  code,
		}

		Convey("Then resolution returns empty rather than the code", func() {
			So(identity.Resolve(rec), ShouldEqual, model.PatientID(""))
		})
	})

	Convey("Given a record with non-string id fields", t, func() {
		rec := model.Record{"patientId": float64(12345678901234567890)}
		So(identity.Resolve(rec).IsZero(), ShouldBeTrue)
	})

	Convey("Given a nil record", t, func() {
		So(identity.Resolve(nil).IsZero(), ShouldBeTrue)
	})
}

func TestCode(t *testing.T) {
	Convey("Given codes at different depths", t, func() {
		So(identity.Code(model.Record{"patientCode": "P-01"}), ShouldEqual, "P-01")
		So(identity.Code(model.Record{"patient": map[string]any{"code": "P-02"}}), ShouldEqual, "P-02")
		So(identity.Code(model.Record{}), ShouldEqual, "")
	})
}

func TestCodeIndex(t *testing.T) {
	Convey("Given a code index", t, func() {
		ix := identity.CodeIndex{"P-01": model.PatientID(directID), "P-02": ""}

		id, ok := ix.Lookup("P-01")
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, model.PatientID(directID))

		_, ok = ix.Lookup("P-02")
		So(ok, ShouldBeFalse)

		_, ok = identity.CodeIndex(nil).Lookup("P-01")
		So(ok, ShouldBeFalse)
	})
}
