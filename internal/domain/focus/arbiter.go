// Package focus decides what the live map is centred on.
//
// Manual selection always wins and cancels self-tracking. A newly critical
// device only takes the camera when the operator is neither inspecting a
// device nor tracking their own position; otherwise the event is recorded as
// suppressed. The trigger counter increases on every focus action so the map
// can tell "focus the same place again" from "nothing changed".
package focus

import (
	"context"
	"sort"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
)

const maxSuppressions = 32

// Suppression records a critical refocus that was held back.
type Suppression struct {
	DeviceIDs []string  `json:"deviceIds"`
	State     State     `json:"state"`
	At        time.Time `json:"at"`
}

// Snapshot is an immutable copy of the arbiter's output.
type Snapshot struct {
	State          State             `json:"state"`
	Target         model.FocusTarget `json:"target"`
	Trigger        uint64            `json:"trigger"`
	SelectedDevice string            `json:"selectedDevice,omitempty"`
	Tracking       bool              `json:"tracking"`
	SelfPosition   *model.Position   `json:"selfPosition,omitempty"`
	CriticalIDs    []string          `json:"criticalDeviceIds,omitempty"`
	Suppressed     []Suppression     `json:"suppressed,omitempty"`

	// SuppressedTotal counts every suppression, including ones aged out of
	// Suppressed.
	SuppressedTotal uint64 `json:"suppressedTotal"`
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Arbiter) {
		if l != nil {
			a.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Arbiter) {
		if now != nil {
			a.now = now
		}
	}
}

// Arbiter is the focus state machine. It is not safe for concurrent use.
type Arbiter struct {
	log logger.Logger
	now func() time.Time

	state    State
	selected string // manual selection; kept pending while tracking
	tracking bool
	self     *model.Position

	devices  map[string]model.DeviceLocation
	critical map[string]struct{}

	target       model.FocusTarget
	trigger      uint64
	suppressed   []Suppression
	suppressions uint64
}

// New creates an idle Arbiter.
func New(opts ...Option) *Arbiter {
	a := &Arbiter{
		log:      logger.NewNop(),
		now:      time.Now,
		devices:  make(map[string]model.DeviceLocation),
		critical: make(map[string]struct{}),
		target:   model.FocusTarget{Kind: model.FocusNone},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SelectDevice focuses device id regardless of the current state and turns
// self-tracking off. Selecting the same device again refires the trigger.
func (a *Arbiter) SelectDevice(ctx context.Context, id string) (Snapshot, error) {
	d, ok := a.devices[id]
	if !ok {
		return a.Snapshot(), ErrUnknownDevice
	}
	a.tracking = false
	a.selected = id
	a.enter(ctx, ManualFocus)
	c := d.Coordinates
	a.fire(model.FocusTarget{Kind: model.FocusSelectedDevice, Coordinates: &c, DeviceIDs: []string{id}})
	return a.Snapshot(), nil
}

// ClearSelection leaves ManualFocus for Idle. It has no effect in other states.
func (a *Arbiter) ClearSelection(ctx context.Context) Snapshot {
	if a.state == ManualFocus {
		a.selected = ""
		a.enter(ctx, Idle)
		a.target = model.FocusTarget{Kind: model.FocusNone}
	}
	return a.Snapshot()
}

// ToggleSelfTracking turns self-tracking on or off. Turning it off returns to
// a pending manual selection if there is one, otherwise to Idle.
func (a *Arbiter) ToggleSelfTracking(ctx context.Context, on bool) Snapshot {
	if on == a.tracking {
		return a.Snapshot()
	}
	a.tracking = on
	if on {
		a.enter(ctx, SelfTracking)
		if a.self != nil {
			c := a.self.Coordinates
			a.fire(model.FocusTarget{Kind: model.FocusSelfLocation, Coordinates: &c})
		} else {
			a.target = model.FocusTarget{Kind: model.FocusSelfLocation}
		}
		return a.Snapshot()
	}

	if d, ok := a.devices[a.selected]; ok && a.selected != "" {
		a.enter(ctx, ManualFocus)
		c := d.Coordinates
		a.fire(model.FocusTarget{Kind: model.FocusSelectedDevice, Coordinates: &c, DeviceIDs: []string{a.selected}})
		return a.Snapshot()
	}
	a.selected = ""
	a.enter(ctx, Idle)
	a.target = model.FocusTarget{Kind: model.FocusNone}
	return a.Snapshot()
}

// UpdateSelfPosition records a geolocation fix. While tracking, every fix
// recentres the map.
func (a *Arbiter) UpdateSelfPosition(_ context.Context, p model.Position) Snapshot {
	a.self = &p
	if a.state == SelfTracking {
		c := p.Coordinates
		a.fire(model.FocusTarget{Kind: model.FocusSelfLocation, Coordinates: &c})
	}
	return a.Snapshot()
}

// UpdateDevices replaces the roster. Devices at Critical health that were not
// critical in the previous roster are treated as newly detected.
func (a *Arbiter) UpdateDevices(ctx context.Context, devices []model.DeviceLocation) Snapshot {
	a.devices = make(map[string]model.DeviceLocation, len(devices))
	current := make(map[string]struct{})
	var fresh []string
	for _, d := range devices {
		a.devices[d.DeviceID] = d
		if d.Health != model.Critical {
			continue
		}
		current[d.DeviceID] = struct{}{}
		if _, known := a.critical[d.DeviceID]; !known {
			fresh = append(fresh, d.DeviceID)
		}
	}
	a.critical = current

	switch a.state {
	case ManualFocus:
		// The selected device may have moved; follow it without refiring.
		if d, ok := a.devices[a.selected]; ok {
			c := d.Coordinates
			a.target.Coordinates = &c
		}
	case CriticalAutoFocus:
		if len(current) == 0 {
			a.enter(ctx, Idle)
			a.target = model.FocusTarget{Kind: model.FocusNone}
		} else if len(fresh) == 0 {
			a.target = a.criticalTarget()
		}
	}

	if len(fresh) > 0 {
		sort.Strings(fresh)
		a.NewCriticalDeviceDetected(ctx, fresh)
	}
	return a.Snapshot()
}

// NewCriticalDeviceDetected moves the focus onto the critical devices when
// the operator is not busy; otherwise it records a suppression.
func (a *Arbiter) NewCriticalDeviceDetected(ctx context.Context, ids []string) Snapshot {
	if len(ids) == 0 {
		return a.Snapshot()
	}
	if a.state != Idle && a.state != CriticalAutoFocus {
		s := Suppression{DeviceIDs: append([]string(nil), ids...), State: a.state, At: a.now().UTC()}
		a.suppressed = append(a.suppressed, s)
		a.suppressions++
		if len(a.suppressed) > maxSuppressions {
			a.suppressed = a.suppressed[len(a.suppressed)-maxSuppressions:]
		}
		a.log.Info(ctx, "critical refocus suppressed",
			logger.Any("device_ids", ids), logger.String("state", a.state.String()))
		return a.Snapshot()
	}
	for _, id := range ids {
		if _, ok := a.devices[id]; ok {
			a.critical[id] = struct{}{}
		}
	}
	t := a.criticalTarget()
	if t.Kind == model.FocusNone {
		return a.Snapshot()
	}
	a.enter(ctx, CriticalAutoFocus)
	a.fire(t)
	return a.Snapshot()
}

// criticalTarget frames every currently critical device.
func (a *Arbiter) criticalTarget() model.FocusTarget {
	ids := make([]string, 0, len(a.critical))
	pts := make([]model.Coordinates, 0, len(a.critical))
	for id := range a.critical {
		if _, ok := a.devices[id]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return model.FocusTarget{Kind: model.FocusNone}
	}
	sort.Strings(ids)
	for _, id := range ids {
		pts = append(pts, a.devices[id].Coordinates)
	}
	b, _ := model.BoundsOf(pts)
	t := model.FocusTarget{Kind: model.FocusCriticalBounds, DeviceIDs: ids, Bounds: &b}
	if len(pts) == 1 {
		c := pts[0]
		t.Coordinates = &c
	}
	return t
}

func (a *Arbiter) enter(ctx context.Context, s State) {
	if a.state != s {
		a.log.Debug(ctx, "focus state change",
			logger.String("from", a.state.String()), logger.String("to", s.String()))
	}
	a.state = s
}

func (a *Arbiter) fire(t model.FocusTarget) {
	a.target = t
	a.trigger++
}

// State returns the current state.
func (a *Arbiter) State() State { return a.state }

// Snapshot returns a deep copy of the arbiter output.
func (a *Arbiter) Snapshot() Snapshot {
	s := Snapshot{
		State:          a.state,
		Target:         copyTarget(a.target),
		Trigger:        a.trigger,
		SelectedDevice: a.selected,
		Tracking:       a.tracking,
		Suppressed:     append([]Suppression(nil), a.suppressed...),

		SuppressedTotal: a.suppressions,
	}
	if a.self != nil {
		p := *a.self
		s.SelfPosition = &p
	}
	for id := range a.critical {
		s.CriticalIDs = append(s.CriticalIDs, id)
	}
	sort.Strings(s.CriticalIDs)
	return s
}

func copyTarget(t model.FocusTarget) model.FocusTarget {
	out := model.FocusTarget{Kind: t.Kind}
	if t.Coordinates != nil {
		c := *t.Coordinates
		out.Coordinates = &c
	}
	if t.Bounds != nil {
		b := *t.Bounds
		out.Bounds = &b
	}
	if len(t.DeviceIDs) > 0 {
		out.DeviceIDs = append([]string(nil), t.DeviceIDs...)
	}
	return out
}
