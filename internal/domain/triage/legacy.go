package triage

import (
	"strings"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
)

// legacyPatterns classify alerts from sources that predate the category
// field. Order matters: the first match wins.
var legacyPatterns = []struct {
	category model.AlertCategory
	needles  []string
}{
	{model.CategoryFall, []string{"fall", "낙상"}},
	{model.CategoryDeviceOffline, []string{"offline", "disconnect", "연결 끊김"}},
	{model.CategoryHeartRate, []string{"heart rate", "heart-rate", "bpm", "심박"}},
	{model.CategoryRespiratoryRate, []string{"respirat", "breath", "호흡"}},
	{model.CategoryThresholdExceeded, []string{"threshold", "exceed", "초과"}},
}

// LegacyCategory classifies an alert from its message text. It is only
// consulted when the source sent no usable category.
func LegacyCategory(msg string) model.AlertCategory {
	m := strings.ToLower(msg)
	if m == "" {
		return model.CategoryUnknown
	}
	for _, p := range legacyPatterns {
		for _, n := range p.needles {
			if strings.Contains(m, n) {
				return p.category
			}
		}
	}
	return model.CategoryUnknown
}
