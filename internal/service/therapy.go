package service

import (
	"github.com/dvo-fracture-risk-server/internal/domain"
)

// Guideline bodies referenced in every therapy plan. Two bodies may grade
// the same clinical situation differently; both statements are always
// carried side by side.
const (
	GuidelineDVO   = "DVO"
	GuidelineDEGAM = "DEGAM"
)

// DeriveTherapyPlan maps (risk band, trigger present) to a therapy plan.
// The table has five explicit states; the trigger only matters in the
// 3-<5% band, where it upgrades "no therapy" to "consider antiresorptive".
// At the highest band DEGAM grades the osteoanabolic recommendation B
// where DVO grades A; this known divergence is surfaced via the deviation
// flag, never silently resolved.
func DeriveTherapyPlan(band domain.RiskBand, triggerPresent bool) *domain.TherapyPlan {
	switch {
	case band == domain.BAND_10_PLUS:
		return &domain.TherapyPlan{
			Strategy:         domain.STRATEGY_START_OSTEOANABOLIC,
			Label:            "Start osteoanabolic therapy",
			SequencingHint:   "Follow the osteoanabolic course with an antiresorptive substance to preserve gained bone mass.",
			DefaultGuideline: GuidelineDVO,
			Primary: domain.GuidelineStatement{
				Guideline: GuidelineDEGAM,
				Grade:     "B",
				Wording:   "An initial osteoanabolic therapy should be considered; shared decision-making with the patient is advised.",
			},
			Reference: domain.GuidelineStatement{
				Guideline: GuidelineDVO,
				Grade:     "A",
				Wording:   "An osteoanabolic substance shall be offered as initial therapy.",
			},
			DEGAMDeviation: true,
		}

	case band == domain.BAND_5_TO_10:
		return &domain.TherapyPlan{
			Strategy:         domain.STRATEGY_ANTIRESORPTIVE,
			Label:            "Antiresorptive therapy",
			DefaultGuideline: GuidelineDVO,
			Primary: domain.GuidelineStatement{
				Guideline: GuidelineDEGAM,
				Grade:     "A",
				Wording:   "A specific antiresorptive therapy shall be offered.",
			},
			Reference: domain.GuidelineStatement{
				Guideline: GuidelineDVO,
				Grade:     "A",
				Wording:   "A specific antiresorptive therapy shall be offered.",
			},
		}

	case band == domain.BAND_3_TO_5 && triggerPresent:
		return &domain.TherapyPlan{
			Strategy:         domain.STRATEGY_CONSIDER_ANTIRESORPTIVE,
			Label:            "Consider antiresorptive therapy",
			DefaultGuideline: GuidelineDVO,
			Primary: domain.GuidelineStatement{
				Guideline: GuidelineDEGAM,
				Grade:     "0",
				Wording:   "A specific antiresorptive therapy can be considered given the present clinical trigger.",
			},
			Reference: domain.GuidelineStatement{
				Guideline: GuidelineDVO,
				Grade:     "0",
				Wording:   "A specific antiresorptive therapy can be considered given the present clinical trigger.",
			},
		}

	default:
		// Covers <3% regardless of trigger and 3-<5% without trigger.
		return &domain.TherapyPlan{
			Strategy:         domain.STRATEGY_NONE,
			Label:            "No specific pharmacotherapy",
			DefaultGuideline: GuidelineDVO,
			Primary: domain.GuidelineStatement{
				Guideline: GuidelineDEGAM,
				Grade:     "-",
				Wording:   "No specific pharmacotherapy is recommended; address basic measures (calcium, vitamin D, exercise, fall prevention).",
			},
			Reference: domain.GuidelineStatement{
				Guideline: GuidelineDVO,
				Grade:     "-",
				Wording:   "No specific pharmacotherapy is recommended; address basic measures (calcium, vitamin D, exercise, fall prevention).",
			},
		}
	}
}
