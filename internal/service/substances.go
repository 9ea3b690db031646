package service

import (
	"sort"

	"github.com/dvo-fracture-risk-server/internal/dataset"
	"github.com/dvo-fracture-risk-server/internal/domain"
)

// initialOsteoanabolics are the only substances approved for the
// start-osteoanabolic indication. The registry lists more osteoanabolic
// entries for other purposes; they stay out of this candidate list no
// matter their activity flag.
var initialOsteoanabolics = map[string]bool{
	"romosozumab":  true,
	"teriparatide": true,
}

// CandidateSubstances maps a therapy strategy to its guideline-eligible
// candidate ids. Contraindication filtering happens upstream and is not
// applied here; the full candidate list is returned.
func CandidateSubstances(catalog *dataset.Catalog, strategy domain.TherapyStrategy) []string {
	var class domain.TherapyClass
	switch strategy {
	case domain.STRATEGY_START_OSTEOANABOLIC:
		class = domain.OSTEOANABOLIC
	case domain.STRATEGY_ANTIRESORPTIVE, domain.STRATEGY_CONSIDER_ANTIRESORPTIVE:
		class = domain.ANTIRESORPTIVE
	default:
		return nil
	}

	var ids []string
	for _, s := range catalog.ActiveSubstancesOfClass(class) {
		if strategy == domain.STRATEGY_START_OSTEOANABOLIC && !initialOsteoanabolics[s.ID] {
			continue
		}
		ids = append(ids, s.ID)
	}
	return ids
}

// RankSubstancesByEvidence ranks candidate substances ascending by the
// 4-key lexicographic order (evidence level A<B<C<none, hip efficacy
// true-first, vertebral efficacy true-first, substance id) and attaches
// display annotations. Candidates without an evidence entry are not an
// error; they rank last with reduced annotation. Unknown ids are skipped.
// The order is total and stable under permutation of the input.
func RankSubstancesByEvidence(catalog *dataset.Catalog, candidateIDs []string) []domain.RankedSubstance {
	ranked := make([]domain.RankedSubstance, 0, len(candidateIDs))
	seen := map[string]bool{}

	for _, id := range candidateIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		substance, ok := catalog.Substance(id)
		if !ok {
			continue
		}

		rs := domain.RankedSubstance{
			SubstanceID:  substance.ID,
			Label:        substance.Label,
			Class:        substance.Class,
			EvidenceChip: "no evidence entry",
			EfficacyHint: "unclear",
		}
		if evidence, ok := catalog.Evidence(id); ok {
			rs.Evidence = evidence
			rs.Note = evidence.Note
			rs.Sources = evidence.Sources
			rs.EvidenceChip = evidenceChip(evidence)
			rs.EfficacyHint = efficacyHint(evidence)
		}
		if admin, ok := catalog.Administration(id); ok {
			rs.Admin = admin
		}
		ranked = append(ranked, rs)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return substanceLess(&ranked[i], &ranked[j])
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

// substanceLess implements the 4-key ordering over ranked substances.
func substanceLess(a, b *domain.RankedSubstance) bool {
	la, lb := evidenceSortRank(a.Evidence), evidenceSortRank(b.Evidence)
	if la != lb {
		return la < lb
	}

	ha, hb := hipEfficacy(a.Evidence), hipEfficacy(b.Evidence)
	if ha != hb {
		return ha
	}

	va, vb := vertebralEfficacy(a.Evidence), vertebralEfficacy(b.Evidence)
	if va != vb {
		return va
	}

	return a.SubstanceID < b.SubstanceID
}

// evidenceSortRank orders A < B < C < no grade < no entry at all.
func evidenceSortRank(e *domain.EvidenceEntry) int {
	if e == nil {
		return 4
	}
	if e.Level == nil {
		return 3
	}
	return e.Level.SortRank()
}

func hipEfficacy(e *domain.EvidenceEntry) bool {
	return e != nil && e.HipEfficacy
}

func vertebralEfficacy(e *domain.EvidenceEntry) bool {
	return e != nil && e.VertebralEfficacy
}

func evidenceChip(e *domain.EvidenceEntry) string {
	if e.Level == nil {
		return "evidence ungraded"
	}
	return "evidence level " + string(*e.Level)
}

func efficacyHint(e *domain.EvidenceEntry) string {
	switch {
	case e.HipEfficacy && e.VertebralEfficacy:
		return "Hip + Vertebral"
	case e.VertebralEfficacy:
		return "Vertebral"
	case e.HipEfficacy:
		return "Hip"
	default:
		return "unclear"
	}
}
