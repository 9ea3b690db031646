package domain

import (
	"fmt"
	"time"
)

// NoBMDKey is the density key used by the threshold tables for the row that
// applies when no bone-density measurement is available.
const NoBMDKey = "no_bmd"

// Reference Data Models

// ThresholdEntry is one cell of a threshold table: the risk-factor
// multiplier required to reach the table's tier for a given age bin and
// density key. A nil RequiredMultiplier is meaningful: the baseline risk
// alone already crosses the tier.
type ThresholdEntry struct {
	AgeBin             int      `json:"age_bin"`
	Density            string   `json:"density"`
	RequiredMultiplier *float64 `json:"required_multiplier,omitempty"`
}

// ThresholdTable holds the ordered threshold entries for one (sex, tier)
// combination. Immutable reference data, loaded once per process.
type ThresholdTable struct {
	Sex     Sex              `json:"sex"`
	Tier    Tier             `json:"tier"`
	Entries []ThresholdEntry `json:"entries"`
}

// RiskFactor is one entry of the guideline risk-factor catalog.
// RelativeRisk is the 3-year relative risk; nil for trigger-only factors.
type RiskFactor struct {
	ID                 string          `json:"id"`
	Label              string          `json:"label"`
	Group              RiskFactorGroup `json:"group"`
	RelativeRisk       *float64        `json:"relative_risk,omitempty"`
	IncludedInRiskCalc bool            `json:"included_in_risk_calc"`
	ImminentRisk       bool            `json:"imminent_risk,omitempty"`
	StrongIrreversible bool            `json:"strong_irreversible,omitempty"`
	ExclusionGroup     string          `json:"exclusion_group,omitempty"`
	ExclusionMode      ExclusionMode   `json:"exclusion_mode,omitempty"`
}

// Validate ensures the risk factor meets catalog integrity requirements.
func (rf *RiskFactor) Validate() error {
	if rf.ID == "" {
		return fmt.Errorf("risk factor validation: id is required")
	}
	if rf.Label == "" {
		return fmt.Errorf("risk factor validation: label is required for %s", rf.ID)
	}
	if !rf.Group.IsValid() {
		return fmt.Errorf("risk factor validation: invalid group %q for %s", rf.Group, rf.ID)
	}
	if rf.IncludedInRiskCalc && rf.RelativeRisk == nil {
		return fmt.Errorf("risk factor validation: %s is calculation-eligible but has no relative risk", rf.ID)
	}
	return nil
}

// MutualExclusionGroup is a set of risk factors among which at most one may
// be selected at a time. Derived index, rebuilt whenever the catalog loads.
type MutualExclusionGroup struct {
	ID        string        `json:"id"`
	Label     string        `json:"label,omitempty"`
	Mode      ExclusionMode `json:"mode"`
	MemberIDs []string      `json:"member_ids"`
}

// Substance is one entry of the authoritative substance registry. Other
// reference tables reference substances by id and must never redefine the
// label or therapy class.
type Substance struct {
	ID     string       `json:"id"`
	Label  string       `json:"label"`
	Class  TherapyClass `json:"class"`
	Active bool         `json:"active"`
}

// Validate ensures the registry entry is usable for candidate derivation.
func (s *Substance) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("substance validation: id is required")
	}
	if s.Label == "" {
		return fmt.Errorf("substance validation: label is required for %s", s.ID)
	}
	if !s.Class.IsValid() {
		return fmt.Errorf("substance validation: %w for %s", ErrInvalidTherapyClass, s.ID)
	}
	return nil
}

// EvidenceEntry is the fracture-efficacy evidence attached to a substance.
// Level is nil when the dataset carries no grade for the substance.
type EvidenceEntry struct {
	SubstanceID       string         `json:"substance_id"`
	Level             *EvidenceLevel `json:"evidence_level,omitempty"`
	HipEfficacy       bool           `json:"hip_efficacy"`
	VertebralEfficacy bool           `json:"vertebral_efficacy"`
	Note              string         `json:"note,omitempty"`
	Sources           []string       `json:"sources,omitempty"`
}

// ApprovalInfo is the per-sex regulatory approval status of a substance.
type ApprovalInfo struct {
	Approved       bool   `json:"approved"`
	PopulationNote string `json:"population_note,omitempty"`
}

// SubstanceAdminMeta is the administration metadata for a substance.
type SubstanceAdminMeta struct {
	SubstanceID string                `json:"substance_id"`
	Route       string                `json:"route"`
	Frequency   string                `json:"frequency"`
	Setting     string                `json:"setting"`
	Approval    map[Sex]*ApprovalInfo `json:"approval"`
}

// Evaluation Models

// SelectedRiskFactor is a risk factor retained for the multiplier together
// with the selection pool it came from. Ephemeral, computed per evaluation.
type SelectedRiskFactor struct {
	Factor RiskFactor    `json:"factor"`
	Pool   SelectionPool `json:"pool"`
}

// TierResult is the outcome of evaluating one percentage tier.
// RequiredMultiplier mirrors the table cell; nil means the cell was absent
// and the tier counted as reached without any risk factor.
type TierResult struct {
	Tier               Tier     `json:"tier"`
	Reached            bool     `json:"reached"`
	RequiredMultiplier *float64 `json:"required_multiplier,omitempty"`
	Reason             string   `json:"reason"`
}

// TriggerResult tracks the two clinical triggers over all selected factors,
// including factors excluded from the multiplier. The contributing factor
// ids are retained for display and audit.
type TriggerResult struct {
	ImminentRisk              bool     `json:"imminent_risk"`
	StrongIrreversible        bool     `json:"strong_irreversible"`
	ImminentRiskFactors       []string `json:"imminent_risk_factors,omitempty"`
	StrongIrreversibleFactors []string `json:"strong_irreversible_factors,omitempty"`
}

// Present reports whether any trigger fired.
func (t *TriggerResult) Present() bool {
	return t.ImminentRisk || t.StrongIrreversible
}

// GuidelineStatement is one guideline body's recommendation wording with
// its strength grade.
type GuidelineStatement struct {
	Guideline string `json:"guideline"`
	Grade     string `json:"grade"`
	Wording   string `json:"wording"`
}

// TherapyPlan is the therapy strategy derived from (risk band, trigger).
// Primary carries the DEGAM framing, Reference the DVO framing; the
// DEGAMDeviation flag marks the known divergence at the highest band and
// must be surfaced, never silently resolved.
type TherapyPlan struct {
	Strategy         TherapyStrategy    `json:"strategy"`
	Label            string             `json:"label"`
	SequencingHint   string             `json:"sequencing_hint,omitempty"`
	DefaultGuideline string             `json:"default_guideline"`
	Primary          GuidelineStatement `json:"primary"`
	Reference        GuidelineStatement `json:"reference"`
	DEGAMDeviation   bool               `json:"degam_deviation,omitempty"`
}

// RankedSubstance is a candidate substance with its evidence ranking and
// display-ready annotations. Evidence is nil when the evidence table has no
// entry for the substance; such candidates rank last.
type RankedSubstance struct {
	SubstanceID  string              `json:"substance_id"`
	Label        string              `json:"label"`
	Class        TherapyClass        `json:"class"`
	Rank         int                 `json:"rank"`
	Evidence     *EvidenceEntry      `json:"evidence,omitempty"`
	EvidenceChip string              `json:"evidence_chip"`
	EfficacyHint string              `json:"efficacy_hint"`
	Note         string              `json:"note,omitempty"`
	Sources      []string            `json:"sources,omitempty"`
	Admin        *SubstanceAdminMeta `json:"administration,omitempty"`
}

// Request/Response Models

// EvaluationRequest carries the already-validated primitive inputs of one
// risk evaluation. TScore is optional; SelectedFactorIDs is passed by value
// and never retained or mutated by the engine.
type EvaluationRequest struct {
	Sex               Sex      `json:"sex" binding:"required,sexvalue"`
	Age               int      `json:"age" binding:"required,min=1,max=120"`
	TScore            *float64 `json:"t_score,omitempty"`
	SelectedFactorIDs []string `json:"selected_factor_ids,omitempty"`
}

// Validate ensures the request is evaluable. Out-of-scope inputs (age under
// 50, T-score above 0.0) are not validation errors; they surface later as
// an advisory result.
func (r *EvaluationRequest) Validate() error {
	if !r.Sex.IsValid() {
		return fmt.Errorf("evaluation request: %w", ErrInvalidSex)
	}
	if r.Age <= 0 {
		return fmt.Errorf("evaluation request: age must be positive")
	}
	return nil
}

// Advisory codes for suppressed evaluations.
const (
	AdvisoryAgeBelowRange   = "AGE_BELOW_RANGE"
	AdvisoryTScoreAboveZero = "TSCORE_ABOVE_RANGE"
)

// Advisory reports an out-of-scope input condition that suppressed the
// evaluation. It is a valid, expected state, not a failure.
type Advisory struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EvaluationResult is the complete outcome of one risk evaluation.
// When Advisory is non-nil all other result fields are zero.
type EvaluationResult struct {
	Advisory        *Advisory            `json:"advisory,omitempty"`
	AgeBin          *int                 `json:"age_bin,omitempty"`
	BMDUsed         bool                 `json:"bmd_used"`
	Multiplier      float64              `json:"multiplier"`
	SelectedFactors []SelectedRiskFactor `json:"selected_factors,omitempty"`
	Tiers           []TierResult         `json:"tiers,omitempty"`
	Band            RiskBand             `json:"band,omitempty"`
	Triggers        TriggerResult        `json:"triggers"`
	TriggerPresent  bool                 `json:"trigger_present"`
	Recommendation  string               `json:"recommendation"`
	Therapy         *TherapyPlan         `json:"therapy,omitempty"`
	Substances      []RankedSubstance    `json:"substances,omitempty"`
	DatasetVersion  string               `json:"dataset_version"`
	Guideline       string               `json:"guideline"`
	ProcessingTime  time.Duration        `json:"processing_time"`
	EvaluatedAt     time.Time            `json:"evaluated_at"`
}
