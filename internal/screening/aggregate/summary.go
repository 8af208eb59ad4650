package aggregate

import (
	"fmt"
	"strings"

	"screener/internal/screening/models"
)

// Recommendation texts, in trigger order.
const (
	RecEnhancedDueDiligence = "Registry match found: perform enhanced due diligence before proceeding."
	RecVerifyOfficial       = "Law enforcement interest indicated: verify current status through official channels."
	RecTryVariations        = "No records found: try name variations, aliases or transliterations."
	RecReviewSources        = "Review all listed sources before making a compliance decision."

	SummaryNothingFound = "No records found in available databases."
)

var lawEnforcementMarkers = []string{"wanted", "fugitive", "law enforcement", "interpol"}

func summarize(reg models.RegistryOutcome, st models.SourceStatus) string {
	if !reg.Success {
		contributing := 0
		if st.WebSearch.Found {
			contributing++
		}
		return fmt.Sprintf("Degraded results: registry unavailable (%s). %d source(s) found.", reg.Error, contributing)
	}

	switch {
	case st.Registry.Found && st.WebSearch.Found:
		return fmt.Sprintf("Found in Registry (%d records) and web search (%d results)", st.Registry.Total, st.WebSearch.Total)
	case st.Registry.Found:
		return fmt.Sprintf("Found in Registry (%d records)", st.Registry.Total)
	case st.WebSearch.Found:
		return fmt.Sprintf("Found in web search (%d results)", st.WebSearch.Total)
	default:
		return SummaryNothingFound
	}
}

func recommend(st models.SourceStatus, items []models.ResultItem) []string {
	found := len(items) > 0
	recs := make([]string, 0, MaxRecommendations)

	if st.Registry.Found {
		recs = append(recs, RecEnhancedDueDiligence)
	}
	if mentionsLawEnforcement(items) {
		recs = append(recs, RecVerifyOfficial)
	}
	if !found {
		recs = append(recs, RecTryVariations)
	}
	if found {
		recs = append(recs, RecReviewSources)
	}

	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}

func mentionsLawEnforcement(items []models.ResultItem) bool {
	for _, it := range items {
		desc := strings.ToLower(it.Description)
		for _, m := range lawEnforcementMarkers {
			if strings.Contains(desc, m) {
				return true
			}
		}
	}
	return false
}
