package scoring_test

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	scoring "github.com/bezboss20/Dashboard-sub001/internal/domain/scoring"
)

func f(v float64) *float64 { return &v }

func TestAlertScore(t *testing.T) {
	Convey("Given the default scorer", t, func() {
		s := scoring.New()

		Convey("Then tier weights apply", func() {
			So(s.AlertScore(model.AlertEvent{Severity: model.Critical}), ShouldEqual, 1000)
			So(s.AlertScore(model.AlertEvent{Severity: model.Warning}), ShouldEqual, 500)
			So(s.AlertScore(model.AlertEvent{Severity: model.Caution}), ShouldEqual, 100)
			So(s.AlertScore(model.AlertEvent{Severity: model.Normal}), ShouldEqual, 0)
		})

		Convey("Then a fall alert gets the flat bonus", func() {
			So(s.AlertScore(model.AlertEvent{Severity: model.Warning, Category: model.CategoryFall}), ShouldEqual, 600)
		})
	})

	Convey("Given custom weights", t, func() {
		s := scoring.New(
			scoring.WithSeverityWeights(map[model.SeverityTier]int{model.Caution: 50}),
			scoring.WithFallBonus(10),
		)
		So(s.AlertScore(model.AlertEvent{Severity: model.Caution, Category: model.CategoryFall}), ShouldEqual, 60)
		So(s.AlertScore(model.AlertEvent{Severity: model.Critical}), ShouldEqual, 1000)
	})
}

func TestRankAlerts(t *testing.T) {
	Convey("Given alerts of mixed tiers in arrival order", t, func() {
		alerts := []model.AlertEvent{
			{ID: "a1", Severity: model.Warning},
			{ID: "a2", Severity: model.Critical},
			{ID: "a3", Severity: model.Warning, Category: model.CategoryFall},
			{ID: "a4", Severity: model.Warning},
			{ID: "a5", Severity: model.Critical},
		}

		Convey("When ranked", func() {
			ranked := scoring.New().RankAlerts(alerts)

			Convey("Then order is by score with stable ties", func() {
				ids := make([]string, len(ranked))
				for i, a := range ranked {
					ids[i] = a.ID
				}
				So(ids, ShouldResemble, []string{"a2", "a5", "a3", "a1", "a4"})
			})

			Convey("Then the input is untouched", func() {
				So(alerts[0].ID, ShouldEqual, "a1")
			})
		})
	})
}

func TestSafeBand(t *testing.T) {
	Convey("Given the heart-rate safe band", t, func() {
		b := scoring.HeartRateSafeBand
		So(b.Distance(110), ShouldEqual, 25)
		So(b.Distance(60), ShouldEqual, 5)
		So(b.Distance(75), ShouldEqual, 0)
		So(b.Distance(85), ShouldEqual, 0)
	})

	Convey("Given the respiratory safe band", t, func() {
		b := scoring.SafeBandFor(model.RespiratoryRate)
		So(b.Distance(26), ShouldEqual, 6)
		So(b.Distance(9), ShouldEqual, 5)
	})
}

func TestRankPatients(t *testing.T) {
	Convey("Given two critical heart-rate patients at 110 and 102", t, func() {
		records := []model.PatientRecord{
			{ID: "p-102", HeartRate: f(102), Severity: model.Critical},
			{ID: "p-110", HeartRate: f(110), Severity: model.Critical},
		}

		Convey("Then 110 ranks above 102", func() {
			ranked := scoring.RankPatients(records, model.HeartRate)
			So(len(ranked), ShouldEqual, 2)
			So(ranked[0].Record.ID, ShouldEqual, model.PatientID("p-110"))
			So(ranked[0].Distance, ShouldEqual, 25)
			So(ranked[1].Record.ID, ShouldEqual, model.PatientID("p-102"))
		})
	})

	Convey("Given patients across tiers and a missing vital", t, func() {
		records := []model.PatientRecord{
			{ID: "normal", HeartRate: f(75)},
			{ID: "no-hr", RespiratoryRate: f(30)},
			{ID: "low-warning", HeartRate: f(55)},
			{ID: "high-caution", HeartRate: f(88)},
			{ID: "critical-low", HeartRate: f(40)},
		}

		Convey("When ranked by heart rate", func() {
			ranked := scoring.RankPatients(records, model.HeartRate)
			ids := make([]string, len(ranked))
			for i, r := range ranked {
				ids[i] = fmt.Sprint(r.Record.ID)
			}

			Convey("Then tier wins over distance and no-hr is absent", func() {
				So(ids, ShouldResemble, []string{"critical-low", "low-warning", "high-caution", "normal"})
				So(ranked[0].Tier, ShouldEqual, model.Critical)
			})
		})

		Convey("When ranked by respiratory rate", func() {
			ranked := scoring.RankPatients(records, model.RespiratoryRate)
			So(len(ranked), ShouldEqual, 1)
			So(ranked[0].Value, ShouldEqual, 30)
		})
	})
}
