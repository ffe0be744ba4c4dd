package simsource

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	givenNames  = []string{"Minji", "Jisoo", "Hyun", "Seojun", "Yuna", "Dohyun", "Ara", "Taeyang"}
	familyNames = []string{"Kim", "Lee", "Park", "Choi", "Jung", "Kang", "Yoon", "Han"}
	koNames     = map[string]string{
		"Kim": "김", "Lee": "이", "Park": "박", "Choi": "최",
		"Jung": "정", "Kang": "강", "Yoon": "윤", "Han": "한",
	}
	severityWords = map[string][]string{
		"critical": {"critical", "HIGH", "CRITICAL"},
		"warning":  {"warning", "MEDIUM"},
		"caution":  {"caution", "LOW", "CAUTION"},
	}
)

// Vital ranges the simulator treats as alarming.
const (
	hrLow, hrHigh = 50.0, 120.0
	rrLow, rrHigh = 10.0, 24.0
	hrCritical    = 140.0
	rrCritical    = 30.0
	fallChance    = 0.01
	offlineChance = 0.02
	resolveAfter  = 10
)

type patient struct {
	id       string
	code     string
	first    string
	last     string
	hr       float64
	rr       float64
	deviceID string
	lat, lng float64
	online   bool
	signal   int
	// codeOnly patients carry their id only in the heart rate stream; the
	// respiratory stream and alerts name them by code.
	codeOnly bool
}

type alert struct {
	id        string
	patient   *patient
	category  string
	severity  string
	status    string
	value     float64
	messageEN string
	messageKO string
	createdAt time.Time
	age       int
}

// Ward is the simulated ward state. It is safe for concurrent use.
type Ward struct {
	mu       sync.Mutex
	rng      *rand.Rand
	now      func() time.Time
	patients []*patient
	alerts   []*alert
	steps    uint64
}

// NewWard builds a ward from cfg.
func NewWard(cfg Config) *Ward {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	w := &Ward{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}
	for i := range cfg.Patients {
		w.patients = append(w.patients, &patient{
			id:       canonicalID(),
			code:     fmt.Sprintf("PT-%03d", i+1),
			first:    givenNames[w.rng.IntN(len(givenNames))],
			last:     familyNames[w.rng.IntN(len(familyNames))],
			hr:       60 + w.rng.Float64()*40,
			rr:       12 + w.rng.Float64()*8,
			deviceID: fmt.Sprintf("DEV-%04d", i+1),
			lat:      cfg.Center[0] + (w.rng.Float64()-0.5)*0.004,
			lng:      cfg.Center[1] + (w.rng.Float64()-0.5)*0.004,
			online:   true,
			signal:   -40 - w.rng.IntN(50),
			codeOnly: i%5 == 4,
		})
	}
	return w
}

// canonicalID returns a 24 hex digit id in the upstream's document id format.
func canonicalID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// Step advances every patient's vitals one tick and raises or ages alerts.
func (w *Ward) Step() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.steps++

	for _, a := range w.alerts {
		if a.status != "resolved" {
			a.age++
			if a.age >= resolveAfter && w.rng.Float64() < 0.3 {
				a.status = "resolved"
			}
		}
	}
	for _, p := range w.patients {
		p.hr = clamp(p.hr+w.rng.NormFloat64()*6, 30, 180)
		p.rr = clamp(p.rr+w.rng.NormFloat64()*2, 5, 40)
		p.lat += w.rng.NormFloat64() * 0.00002
		p.lng += w.rng.NormFloat64() * 0.00002
		if w.rng.Float64() < offlineChance {
			p.online = !p.online
			if !p.online {
				w.raise(p, "device_offline", "caution", 0,
					"Device offline", "기기 연결 끊김")
			}
		}

		switch {
		case p.hr > hrHigh || p.hr < hrLow:
			sev := "warning"
			if p.hr > hrCritical {
				sev = "critical"
			}
			w.raise(p, "heart_rate", sev, p.hr,
				fmt.Sprintf("Heart rate abnormal (%.0f bpm)", p.hr), "심박수 이상")
		case p.rr > rrHigh || p.rr < rrLow:
			sev := "warning"
			if p.rr > rrCritical {
				sev = "critical"
			}
			w.raise(p, "respiratory_rate", sev, p.rr,
				fmt.Sprintf("Respiratory rate abnormal (%.0f/min)", p.rr), "호흡수 이상")
		}
		if w.rng.Float64() < fallChance {
			w.raise(p, "", "critical", 0, "Fall detected", "낙상 감지")
		}
	}
	if n := len(w.alerts); n > historyLimit {
		w.alerts = append([]*alert(nil), w.alerts[n-historyLimit:]...)
	}
}

// raise adds an alert unless the patient already has an open one in the
// same category. An empty category leaves the consumer to infer it from
// the message.
func (w *Ward) raise(p *patient, category, sev string, value float64, en, ko string) {
	key := category
	if key == "" {
		key = en
	}
	for _, a := range w.alerts {
		if a.patient == p && a.key() == key && a.status != "resolved" {
			return
		}
	}
	words := severityWords[sev]
	w.alerts = append(w.alerts, &alert{
		id:        uuid.NewString(),
		patient:   p,
		category:  category,
		severity:  words[w.rng.IntN(len(words))],
		status:    "active",
		value:     value,
		messageEN: en,
		messageKO: ko,
		createdAt: w.now(),
	})
}

func (a *alert) key() string {
	if a.category != "" {
		return a.category
	}
	return a.messageEN
}

// Steps reports how many ticks have run.
func (w *Ward) Steps() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.steps
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

func tierOf(p *patient) string {
	switch {
	case p.hr > hrCritical || p.rr > rrCritical:
		return "critical"
	case p.hr > hrHigh || p.hr < hrLow || p.rr > rrHigh || p.rr < rrLow:
		return "warning"
	default:
		return "normal"
	}
}
