package models

import (
	"strings"

	"github.com/google/uuid"
)

// Strategy represents a registered trading strategy
type Strategy struct {
	ID           string            `json:"id" validate:"required"`
	Name         string            `json:"name" validate:"required,min=1,max=255"`
	Template     string            `json:"template" validate:"required"`
	Parameters   map[string]string `json:"parameters"`
	UploadedFile string            `json:"uploaded_file,omitempty"`
}

// NewStrategyID generates a strategy identifier of the form strategy_<hex8>
func NewStrategyID() string {
	return "strategy_" + shortHex()
}

// NewCustomStrategyID generates an identifier for an uploaded custom strategy
func NewCustomStrategyID() string {
	return "custom_" + shortHex()
}

// NewBacktestID generates a backtest result identifier
func NewBacktestID() string {
	return "backtest_" + shortHex()
}

func shortHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// Parameter returns a parameter value and whether it was set
func (s *Strategy) Parameter(key string) (string, bool) {
	if s.Parameters == nil {
		return "", false
	}
	v, ok := s.Parameters[key]
	return v, ok
}

// Validate performs basic validation on the strategy
func (s *Strategy) Validate() error {
	if s.Name == "" {
		return NewValidationError("name", "strategy name is required")
	}
	if s.Template == "" {
		return NewValidationError("template", "strategy template is required")
	}
	return nil
}
