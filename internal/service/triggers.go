package service

import (
	"github.com/dvo-fracture-risk-server/internal/dataset"
	"github.com/dvo-fracture-risk-server/internal/domain"
)

// DetectTriggers scans all selected factors for the two clinical triggers,
// regardless of calculation eligibility: a factor may be trigger-only and
// still escalate the therapy strategy. Unknown ids are skipped. The
// contributing factor ids are retained for display and audit.
func DetectTriggers(catalog *dataset.Catalog, selectedIDs []string) domain.TriggerResult {
	result := domain.TriggerResult{}
	seen := map[string]bool{}

	for _, id := range selectedIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		rf, ok := catalog.RiskFactor(id)
		if !ok {
			continue
		}
		if rf.ImminentRisk {
			result.ImminentRisk = true
			result.ImminentRiskFactors = append(result.ImminentRiskFactors, rf.ID)
		}
		if rf.StrongIrreversible {
			result.StrongIrreversible = true
			result.StrongIrreversibleFactors = append(result.StrongIrreversibleFactors, rf.ID)
		}
	}

	return result
}
