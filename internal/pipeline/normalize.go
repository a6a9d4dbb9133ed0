package pipeline

import (
	"orderintake/internal"
	"orderintake/internal/util"
)

type NormalizedItem struct {
	internal.CandidateItem
	NormalizedDescription string
	CanonicalDescription  string
}

func NormalizeItem(item internal.CandidateItem) NormalizedItem {
	source := item.Description
	if source == "" {
		source = item.RawLine
	}
	return NormalizedItem{
		CandidateItem:         item,
		NormalizedDescription: util.NormalizeName(source),
		CanonicalDescription:  util.Canonicalize(source),
	}
}

func NormalizeItems(items []internal.CandidateItem) []NormalizedItem {
	out := make([]NormalizedItem, 0, len(items))
	for _, item := range items {
		out = append(out, NormalizeItem(item))
	}
	return out
}
