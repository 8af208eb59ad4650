package aggregate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"screener/internal/screening/models"
	pkgstrings "screener/pkg/platform/strings"
)

// Scoring adjustments, applied in the order Score lists them.
const (
	boilerplatePenalty = 0.1
	exactNameBonus     = 0.3
	namePartBonus      = 0.1
	noNamePenalty      = 0.2
	criticalBonus      = 0.25
	complianceBonus    = 0.15
	countryBonus       = 0.3
	datasetBonus       = 0.4
	shortSnippetLen    = 50
	shortSnippetFactor = 0.7
	irrelevantFactor   = 0.1
	minNamePartLen     = 3
)

var boilerplatePhrases = []string{
	"privacy policy", "terms of service", "cookie policy", "help center",
	"support documentation", "user guide", "tutorial", "how to",
	"general compliance", "product features", "pricing", "download",
	"sign up", "log in", "create account", "software documentation",
}

var criticalKeywords = []string{
	"sanctions", "sanctioned", "wanted", "fugitive", "arrested",
	"indicted", "charged", "investigation", "enforcement",
	"violated", "penalty", "fine", "prosecution", "criminal",
	"fraud", "money laundering", "terror", "drug trafficking",
}

var complianceKeywords = []string{
	"compliance", "regulatory", "violation", "breach",
	"aml", "kyc", "cfpb", "sec", "finra", "ofac", "treasury",
	"financial crime", "suspicious activity", "due diligence",
}

var (
	wantedTextMarkers    = []string{"wanted", "fugitive", "arrest"}
	sanctionsTextMarkers = []string{"sanction", "penalty", "enforcement"}
)

// Score rates how likely r concerns entity in a compliance context. base is
// the prior weight of the query that found r; reg supplies cross-reference
// context and may be nil. The result is always within [0, 1].
func Score(r models.WebResult, entity string, reg *models.RegistryOutcome, base float64) float64 {
	snippet := strings.ToLower(r.Snippet)
	content := strings.ToLower(r.Title) + " " + snippet
	name := strings.ToLower(strings.TrimSpace(entity))
	nameInContent := name != "" && strings.Contains(content, name)

	score := base

	if !nameInContent && pkgstrings.ContainsAny(content, boilerplatePhrases...) {
		score *= boilerplatePenalty
	}

	if nameInContent {
		score += exactNameBonus
	} else {
		matched := 0
		for _, part := range nameParts(name) {
			if strings.Contains(content, part) {
				matched++
				score += namePartBonus
			}
		}
		if matched == 0 {
			score *= noNamePenalty
		}
	}

	critical := pkgstrings.CountContained(content, criticalKeywords)
	score += float64(critical) * criticalBonus

	compliance := pkgstrings.CountContained(content, complianceKeywords)
	score += float64(compliance) * complianceBonus

	if reg != nil && reg.Success {
		score += crossReference(content, reg.Hits, critical+compliance > 0)
	}

	if utf8.RuneCountInString(snippet) < shortSnippetLen {
		score *= shortSnippetFactor
	}

	if critical == 0 && !nameInContent {
		score *= irrelevantFactor
	}

	return clamp(score)
}

// crossReference rewards content that echoes registry context: a hit's
// country together with any keyword, or a dataset theme matched by the text.
func crossReference(content string, hits []models.RegistryHit, anyKeyword bool) float64 {
	bonus := 0.0
	words := " " + strings.Join(tokenize(content), " ") + " "

	for _, h := range hits {
		if anyKeyword {
			for _, c := range h.Countries {
				country := strings.Join(tokenize(strings.ToLower(c)), " ")
				if country != "" && strings.Contains(words, " "+country+" ") {
					bonus += countryBonus
				}
			}
		}
		for _, d := range h.Datasets {
			ds := strings.ToLower(d)
			switch {
			case strings.Contains(ds, "wanted") && pkgstrings.ContainsAny(content, wantedTextMarkers...):
				bonus += datasetBonus
			case strings.Contains(ds, "sanction") && pkgstrings.ContainsAny(content, sanctionsTextMarkers...):
				bonus += datasetBonus
			}
		}
	}
	return bonus
}

// nameParts splits a lower-cased name into tokens worth matching on their
// own. Commas and periods are dropped first.
func nameParts(name string) []string {
	cleaned := strings.NewReplacer(",", "", ".", "").Replace(name)
	var parts []string
	for _, p := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(p) >= minNamePartLen {
			parts = append(parts, p)
		}
	}
	return parts
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
