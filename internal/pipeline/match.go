package pipeline

import (
	"sort"
	"strings"

	"orderintake/internal"
	"orderintake/internal/catalog"
	"orderintake/internal/config"
	"orderintake/internal/util"
)

const (
	diceWeight    = 0.65
	overlapWeight = 0.35

	// exactCodeScore is reported when a SKU lookup short-circuits matching.
	exactCodeScore = 0.99

	// fallbackScanCap bounds the full-catalog scan used when no query token
	// hits the inverted index.
	fallbackScanCap = 1500
)

// Matcher resolves candidate items against one catalog snapshot. It holds
// the snapshot for its whole lifetime, so every Match call within a request
// sees the same catalog.
type Matcher struct {
	cfg  config.Config
	snap *catalog.Snapshot
}

func NewMatcher(cfg config.Config, snap *catalog.Snapshot) *Matcher {
	return &Matcher{cfg: cfg, snap: snap}
}

// Match classifies one normalized item as Resolved, Ambiguous or
// Unmatched. Candidates always lists every product at or above the
// minimum score, best first, ties by ascending SKU.
func (m *Matcher) Match(item NormalizedItem) internal.MatchResult {
	query := item.Description
	if strings.TrimSpace(query) == "" {
		query = item.RawLine
	}

	// SKU fast path: an exact code reference needs no fuzzy scoring.
	if util.LooksLikeCode(query) {
		code := util.NormalizeCode(query)
		if hits := m.snap.Index.ByCode[code]; len(hits) == 1 {
			best := hits[0]
			return internal.MatchResult{
				Item:  item.CandidateItem,
				State: internal.MatchResolved,
				Best:  &best,
				Candidates: []internal.MatchCandidate{
					{SKU: best.SKU, Name: best.Name, Score: exactCodeScore},
				},
			}
		}
	}

	candidates := m.rank(item.CanonicalDescription, util.Tokenize(item.NormalizedDescription))
	if len(candidates) == 0 {
		return internal.MatchResult{
			Item:       item.CandidateItem,
			State:      internal.MatchUnmatched,
			Candidates: []internal.MatchCandidate{},
		}
	}

	resolved := len(candidates) == 1 ||
		candidates[0].Score-candidates[1].Score >= m.cfg.MatchMargin
	if resolved {
		best := m.snap.Index.BySKU[candidates[0].SKU]
		return internal.MatchResult{
			Item:       item.CandidateItem,
			State:      internal.MatchResolved,
			Best:       &best,
			Candidates: candidates,
		}
	}

	return internal.MatchResult{
		Item:       item.CandidateItem,
		State:      internal.MatchAmbiguous,
		Candidates: candidates,
	}
}

// rank scores every plausible product for the query and keeps those at or
// above the configured floor, sorted score desc then SKU asc.
func (m *Matcher) rank(queryCanon string, queryTokens []string) []internal.MatchCandidate {
	idx := m.snap.Index
	if queryCanon == "" {
		return nil
	}

	skus := map[string]struct{}{}
	for _, token := range queryTokens {
		for sku := range idx.TokenToSKUs[token] {
			skus[sku] = struct{}{}
		}
	}
	if len(skus) == 0 {
		for i, sku := range idx.SortedSKUs {
			if i >= fallbackScanCap {
				break
			}
			skus[sku] = struct{}{}
		}
	}

	out := make([]internal.MatchCandidate, 0, len(skus))
	for sku := range skus {
		p, ok := idx.BySKU[sku]
		if !ok {
			continue
		}
		best := 0.0
		for _, canon := range idx.CanonicalBySKU[sku] {
			if score := scoreNames(queryCanon, queryTokens, canon); score > best {
				best = score
			}
		}
		if best >= m.cfg.MatchMinScore {
			out = append(out, internal.MatchCandidate{SKU: p.SKU, Name: p.Name, Score: best})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

// scoreNames combines bigram similarity over canonical (sorted-token) forms
// with plain token overlap. Both inputs must already be canonicalized.
func scoreNames(queryCanon string, queryTokens []string, candidateCanon string) float64 {
	dice := util.DiceCoefficient(queryCanon, candidateCanon)
	if len(queryTokens) == 0 {
		return dice
	}

	candTokens := map[string]struct{}{}
	for _, t := range strings.Split(candidateCanon, " ") {
		candTokens[t] = struct{}{}
	}
	hits := 0
	for _, t := range queryTokens {
		if _, ok := candTokens[t]; ok {
			hits++
		}
	}
	overlap := float64(hits) / float64(len(queryTokens))

	return diceWeight*dice + overlapWeight*overlap
}
