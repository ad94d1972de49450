package enums

// MatchType classifies the matching engine's verdict for a submission.
type MatchType string

const (
	MatchTypeExact MatchType = "exact"
	MatchTypeFuzzy MatchType = "fuzzy"
	MatchTypeNone  MatchType = "none"
)

// String implements fmt.Stringer.
func (m MatchType) String() string {
	return string(m)
}

// MatchSuggestion is surfaced to callers alongside fuzzy results.
type MatchSuggestion string

const (
	MatchSuggestionUseExisting MatchSuggestion = "use_existing"
	MatchSuggestionCreateNew   MatchSuggestion = "create_new"
)

// String implements fmt.Stringer.
func (m MatchSuggestion) String() string {
	return string(m)
}
