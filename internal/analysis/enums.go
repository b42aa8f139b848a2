package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RiskLevel is a three-step scale used across analyses.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Severity grades dependency risks.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// BlockerSeverity grades migration blockers.
type BlockerSeverity string

const (
	BlockerMinor    BlockerSeverity = "minor"
	BlockerMajor    BlockerSeverity = "major"
	BlockerCritical BlockerSeverity = "critical"
	BlockerBlocker  BlockerSeverity = "blocker"
)

// The decoders below reject values outside the enumeration instead of letting
// arbitrary model output flow downstream. Matching is case-insensitive since
// models capitalize freely.

func (r *RiskLevel) UnmarshalJSON(b []byte) error {
	v, err := decodeEnum(b, "risk level", string(RiskLow), string(RiskMedium), string(RiskHigh))
	if err != nil {
		return err
	}
	*r = RiskLevel(v)
	return nil
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	v, err := decodeEnum(b, "severity",
		string(SeverityLow), string(SeverityMedium), string(SeverityHigh), string(SeverityCritical))
	if err != nil {
		return err
	}
	*s = Severity(v)
	return nil
}

func (s *BlockerSeverity) UnmarshalJSON(b []byte) error {
	v, err := decodeEnum(b, "blocker severity",
		string(BlockerMinor), string(BlockerMajor), string(BlockerCritical), string(BlockerBlocker))
	if err != nil {
		return err
	}
	*s = BlockerSeverity(v)
	return nil
}

func decodeEnum(b []byte, kind string, allowed ...string) (string, error) {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return "", fmt.Errorf("analysis: %s must be a string: %w", kind, err)
	}
	norm := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range allowed {
		if norm == a {
			return a, nil
		}
	}
	return "", fmt.Errorf("analysis: invalid %s %q (want one of %s)", kind, raw, strings.Join(allowed, "|"))
}

// RiskLevelForScore maps an overall 0-100 score onto the three-step scale.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 70:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}
