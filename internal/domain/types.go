// Package domain contains core business entities and types for 3-year
// fracture-risk classification and therapy recommendation following the
// DVO osteoporosis guideline (Dachverband Osteologie).
//
// Reference: DVO Leitlinie zur Prophylaxe, Diagnostik und Therapie der
// Osteoporose, 2023 revision.
package domain

import "errors"

// Sex is the biological sex the threshold tables are keyed by.
// The guideline tabulates female and male risk separately; there is no
// default and no other accepted value.
type Sex string

const (
	FEMALE Sex = "female"
	MALE   Sex = "male"
)

// Tier is one of the three percentage thresholds evaluated independently
// against the combined risk-factor multiplier.
type Tier int

const (
	TIER_3  Tier = 3
	TIER_5  Tier = 5
	TIER_10 Tier = 10
)

// Tiers lists all tiers in ascending order.
var Tiers = []Tier{TIER_3, TIER_5, TIER_10}

// RiskBand represents the named 3-year fracture-risk range derived from the
// highest reached tier.
type RiskBand string

const (
	BAND_BELOW_3 RiskBand = "BELOW_3"
	BAND_3_TO_5  RiskBand = "3_TO_5"
	BAND_5_TO_10 RiskBand = "5_TO_10"
	BAND_10_PLUS RiskBand = "10_PLUS"
)

// RiskFactorGroup is the guideline grouping that drives the selection rules:
// at most one factor each from the fall-risk and rheumatoid/glucocorticoid
// groups, at most two from the remainder.
type RiskFactorGroup string

const (
	GROUP_FALL_RISK RiskFactorGroup = "fall_risk"
	GROUP_RHEUMA_GC RiskFactorGroup = "rheuma_gc"
	GROUP_OTHER     RiskFactorGroup = "other"
)

// ExclusionMode describes how members of a mutual-exclusion group interact.
// Only single-choice-optional is meaningful in the current guideline data.
type ExclusionMode string

const (
	SINGLE_CHOICE_OPTIONAL ExclusionMode = "single_choice_optional"
)

// SelectionPool tags which selection step produced a retained risk factor.
// Informational only; it never changes the multiplier.
type SelectionPool string

const (
	POOL_FALL_RISK SelectionPool = "FALL_RISK"
	POOL_RHEUMA_GC SelectionPool = "RHEUMA_GC"
	POOL_OTHER_1   SelectionPool = "OTHER_1"
	POOL_OTHER_2   SelectionPool = "OTHER_2"
)

// TherapyStrategy is the derived treatment strategy for a risk band.
type TherapyStrategy string

const (
	STRATEGY_NONE                    TherapyStrategy = "NONE"
	STRATEGY_CONSIDER_ANTIRESORPTIVE TherapyStrategy = "CONSIDER_ANTIRESORPTIVE"
	STRATEGY_ANTIRESORPTIVE          TherapyStrategy = "ANTIRESORPTIVE"
	STRATEGY_START_OSTEOANABOLIC     TherapyStrategy = "START_OSTEOANABOLIC"
)

// TherapyClass is the pharmacologic category guiding candidate selection.
type TherapyClass string

const (
	OSTEOANABOLIC  TherapyClass = "osteoanabolic"
	ANTIRESORPTIVE TherapyClass = "antiresorptive"
)

// EvidenceLevel is the A/B/C strength-of-evidence grade attached to a
// substance for fracture-risk reduction.
type EvidenceLevel string

const (
	EVIDENCE_A EvidenceLevel = "A"
	EVIDENCE_B EvidenceLevel = "B"
	EVIDENCE_C EvidenceLevel = "C"
)

// Validation errors for clinical data integrity.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidSex          = errors.New("invalid sex: must be female or male")
	ErrInvalidTier         = errors.New("invalid threshold tier")
	ErrInvalidRiskBand     = errors.New("invalid risk band")
	ErrInvalidStrategy     = errors.New("invalid therapy strategy")
	ErrInvalidTherapyClass = errors.New("invalid therapy class")
)

// IsValid validates the sex value. The engine accepts exactly the two
// values the guideline tables are published for.
func (s Sex) IsValid() bool {
	switch s {
	case FEMALE, MALE:
		return true
	default:
		return false
	}
}

// String returns the string representation for logging and audit trails.
func (s Sex) String() string {
	return string(s)
}

// IsValid validates the tier against the three guideline thresholds.
func (t Tier) IsValid() bool {
	switch t {
	case TIER_3, TIER_5, TIER_10:
		return true
	default:
		return false
	}
}

// IsValid validates the risk band.
func (b RiskBand) IsValid() bool {
	switch b {
	case BAND_BELOW_3, BAND_3_TO_5, BAND_5_TO_10, BAND_10_PLUS:
		return true
	default:
		return false
	}
}

// String returns the human-readable percentage range for the band.
func (b RiskBand) String() string {
	switch b {
	case BAND_BELOW_3:
		return "<3%"
	case BAND_3_TO_5:
		return "3-<5%"
	case BAND_5_TO_10:
		return "5-<10%"
	case BAND_10_PLUS:
		return ">=10%"
	default:
		return "unknown band"
	}
}

// LogFields returns structured logging fields for audit trails.
// Returns strongly-typed fields to prevent logging errors in clinical contexts.
func (b RiskBand) LogFields() map[string]any {
	return map[string]any{
		"risk_band":       string(b),
		"risk_band_range": b.String(),
		"is_valid":        b.IsValid(),
		"requires_action": b.RequiresTherapyReview(),
	}
}

// RequiresTherapyReview determines if the band requires a therapy decision.
// Critical for clinical workflow automation.
func (b RiskBand) RequiresTherapyReview() bool {
	switch b {
	case BAND_5_TO_10, BAND_10_PLUS:
		return true
	case BAND_BELOW_3, BAND_3_TO_5:
		return false
	default:
		return true // Conservative approach for unknown bands
	}
}

// IsValid validates the risk factor group.
func (g RiskFactorGroup) IsValid() bool {
	switch g {
	case GROUP_FALL_RISK, GROUP_RHEUMA_GC, GROUP_OTHER:
		return true
	default:
		return false
	}
}

// Exclusive reports whether the group contributes at most one factor to
// the multiplier.
func (g RiskFactorGroup) Exclusive() bool {
	return g == GROUP_FALL_RISK || g == GROUP_RHEUMA_GC
}

// IsValid validates the therapy strategy.
func (s TherapyStrategy) IsValid() bool {
	switch s {
	case STRATEGY_NONE, STRATEGY_CONSIDER_ANTIRESORPTIVE, STRATEGY_ANTIRESORPTIVE, STRATEGY_START_OSTEOANABOLIC:
		return true
	default:
		return false
	}
}

// String returns the string representation of the strategy.
func (s TherapyStrategy) String() string {
	return string(s)
}

// IsValid validates the therapy class.
func (c TherapyClass) IsValid() bool {
	switch c {
	case OSTEOANABOLIC, ANTIRESORPTIVE:
		return true
	default:
		return false
	}
}

// IsValid validates the evidence level.
func (l EvidenceLevel) IsValid() bool {
	switch l {
	case EVIDENCE_A, EVIDENCE_B, EVIDENCE_C:
		return true
	default:
		return false
	}
}

// SortRank orders evidence levels A < B < C for substance ranking.
// An invalid level sorts after C.
func (l EvidenceLevel) SortRank() int {
	switch l {
	case EVIDENCE_A:
		return 0
	case EVIDENCE_B:
		return 1
	case EVIDENCE_C:
		return 2
	default:
		return 3
	}
}
