package directive

import (
	_ "embed"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed gate_keywords.yaml
var gateKeywordDoc []byte

// keywordFile mirrors gate_keywords.yaml.
type keywordFile struct {
	Mitigation  []string `yaml:"mitigation"`
	PublicClaim []string `yaml:"public_claim"`
	NewVendor   []string `yaml:"new_vendor"`
}

// keywordSet is a compiled list of case-insensitive word patterns.
type keywordSet struct {
	patterns []*regexp.Regexp
}

func compileKeywordSet(terms []string) keywordSet {
	set := keywordSet{patterns: make([]*regexp.Regexp, 0, len(terms))}
	for _, term := range terms {
		// \b on both sides so "ad" does not match "ladder".
		set.patterns = append(set.patterns,
			regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`))
	}
	return set
}

func (s keywordSet) matches(text string) bool {
	for _, p := range s.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

var (
	mitigationTerms  keywordSet
	publicClaimTerms keywordSet
	newVendorTerms   keywordSet
)

func init() {
	var kf keywordFile
	if err := yaml.Unmarshal(gateKeywordDoc, &kf); err != nil {
		panic("directive: embedded gate_keywords.yaml is malformed: " + err.Error())
	}
	mitigationTerms = compileKeywordSet(kf.Mitigation)
	publicClaimTerms = compileKeywordSet(kf.PublicClaim)
	newVendorTerms = compileKeywordSet(kf.NewVendor)
}

// directiveText joins every free-text field of a directive for keyword
// scanning.
func directiveText(d Directive) string {
	parts := make([]string, 0, 3+len(d.Tasks))
	parts = append(parts, d.Action, d.Rationale)
	parts = append(parts, d.Tasks...)
	return strings.Join(parts, "\n")
}

// HasMitigationLanguage reports whether any text field of the directive
// acknowledges and mitigates its risk increase. Exported as a named
// predicate so the risk gate's rescue condition is testable in isolation.
func HasMitigationLanguage(d Directive) bool {
	return mitigationTerms.matches(directiveText(d))
}

// MakesPublicClaim reports whether the directive's text reads as outward
// marketing or public communication.
func MakesPublicClaim(d Directive) bool {
	return publicClaimTerms.matches(directiveText(d))
}

// IntroducesVendor reports whether the directive's text brings in a new
// vendor, tool, or third-party integration.
func IntroducesVendor(d Directive) bool {
	return newVendorTerms.matches(directiveText(d))
}
