// Package simsource simulates the upstream ward dashboard API so the
// monitor can run without a hospital backend.
package simsource

import (
	"errors"
	"fmt"
	"time"

	"github.com/bezboss20/Dashboard-sub001/internal/adapters/source"
)

// Error constants.
var (
	ErrInvalidConfig = errors.New("simsource: invalid config")
	ErrUnknownShape  = errors.New("simsource: unknown shape")
)

// Config holds configuration for the simulated ward.
type Config struct {
	Patients int              // Number of patients, one device each
	Shape    source.ShapeKind // Response layout for every endpoint
	Seed     uint64           // Random seed; zero picks one from the clock
	FailRate float64          // Fraction of requests answered with 503
	Step     time.Duration    // Interval between vital updates
	Center   [2]float64       // Ward latitude and longitude
}

// Default configuration values.
const (
	DefaultPatients = 24
	DefaultStep     = 2 * time.Second
	historyLimit    = 500
	overviewAlerts  = 100
)

// DefaultConfig returns a ward of DefaultPatients in the envelope shape.
func DefaultConfig() Config {
	return Config{
		Patients: DefaultPatients,
		Shape:    source.ShapeEnvelope,
		Step:     DefaultStep,
		Center:   [2]float64{37.5665, 126.9780},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Patients <= 0:
		return fmt.Errorf("%w: patients must be positive", ErrInvalidConfig)
	case c.FailRate < 0 || c.FailRate > 1:
		return fmt.Errorf("%w: fail rate must be within [0, 1]", ErrInvalidConfig)
	case c.Shape < source.ShapeFlat || c.Shape > source.ShapeDoubleEnvelope:
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrUnknownShape)
	}
	return nil
}

// ParseShape maps a shape name to its kind.
func ParseShape(s string) (source.ShapeKind, error) {
	for _, k := range []source.ShapeKind{source.ShapeFlat, source.ShapeEnvelope, source.ShapeDoubleEnvelope} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, s)
}
