package gym

import (
	"errors"
	"fmt"
)

const (
	MaxDays = 30 * 36

	StimulantEnergy = 250.0
	MaxHappy        = 99999.0
	HoursPerDay     = 24.0
)

var (
	ErrInvalidConfig   = errors.New("invalid simulation config")
	ErrSectionCoverage = errors.New("sections must tile the simulation horizon")
	ErrInvalidCatalog  = errors.New("invalid gym catalog")
)

type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfig
}

func configErr(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SectionCoverageError reports the day range that breaks the tiling of [1, totalDays].
type SectionCoverageError struct {
	Start  int
	End    int
	Reason string
}

func (e *SectionCoverageError) Error() string {
	if e.Start == e.End {
		return fmt.Sprintf("sections day %d: %s", e.Start, e.Reason)
	}
	return fmt.Sprintf("sections days %d-%d: %s", e.Start, e.End, e.Reason)
}

func (e *SectionCoverageError) Unwrap() error {
	return ErrSectionCoverage
}
