package models

import (
	"fmt"
	"strings"
)

// Impact grades how much attention an alert needs.
type Impact int

const (
	ImpactLow Impact = iota
	ImpactMedium
	ImpactHigh
)

func (i Impact) String() string {
	switch i {
	case ImpactLow:
		return "Low"
	case ImpactMedium:
		return "Medium"
	case ImpactHigh:
		return "High"
	default:
		return fmt.Sprintf("Impact(%d)", int(i))
	}
}

// ParseImpact is the inverse of Impact.String, case-insensitive.
func ParseImpact(s string) (Impact, error) {
	switch strings.ToLower(s) {
	case "low":
		return ImpactLow, nil
	case "medium":
		return ImpactMedium, nil
	case "high":
		return ImpactHigh, nil
	}
	return 0, fmt.Errorf("unknown impact %q", s)
}

func (i Impact) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Impact) UnmarshalText(b []byte) error {
	v, err := ParseImpact(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// Alert is a data-quality finding derived from a DQ log entry.
type Alert struct {
	Metric          string  `json:"metric"`
	Message         string  `json:"message"`
	Impact          Impact  `json:"impact"`
	ConfidenceLabel string  `json:"confidence"`
	Value           float64 `json:"value"`
}
