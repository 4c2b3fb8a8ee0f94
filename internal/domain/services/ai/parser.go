package ai

import (
	"regexp"
	"strconv"
	"strings"

	"scamlens/internal/domain/models"
)

// Section keys
const (
	KeyScamLikelihood    = "scamLikelihood"
	KeyKeywords          = "suspiciousKeywords"
	KeyDetailedAnalysis  = "detailedAnalysis"
	KeyRecommendedAction = "recommendedAction"
	KeyAddressValidity   = "addressValidity"
	KeyDomainStatus      = "domainStatus"
)

// Section describes one labelled part of an oracle reply
type Section struct {
	Key       string
	Label     string
	Default   string
	Multiline bool
}

// Layout is the ordered set of sections expected for one scan kind
type Layout struct {
	sections []Section
	pattern  *regexp.Regexp
}

// NewLayout compiles a layout. A label starts a line and may be numbered
// ("1.") and wrapped in markdown emphasis ("**Label:**").
func NewLayout(sections ...Section) *Layout {
	labels := make([]string, len(sections))
	for i, s := range sections {
		labels[i] = regexp.QuoteMeta(s.Label)
	}
	pattern := regexp.MustCompile(`(?im)^[ \t#>*-]*(?:\d+[.)][ \t]*)?(?:\*\*|__)?[ \t]*(` +
		strings.Join(labels, "|") + `)[ \t]*(?:\*\*|__)?[ \t]*:[ \t]*(?:\*\*|__)?`)
	return &Layout{sections: sections, pattern: pattern}
}

var (
	EmailLayout = NewLayout(
		Section{Key: KeyScamLikelihood, Label: "Scam Likelihood", Default: "Not Determined"},
		Section{Key: KeyKeywords, Label: "Keywords or Phrases", Default: "None"},
		Section{Key: KeyDetailedAnalysis, Label: "Detailed Analysis", Default: "No detailed analysis provided.", Multiline: true},
		Section{Key: KeyRecommendedAction, Label: "Recommended Action", Default: "None", Multiline: true},
	)

	JobListingLayout = NewLayout(
		Section{Key: KeyScamLikelihood, Label: "Scam Likelihood", Default: "Not Determined"},
		Section{Key: KeyKeywords, Label: "Keywords or Phrases", Default: "None"},
		Section{Key: KeyDetailedAnalysis, Label: "Detailed Analysis", Default: "No detailed analysis provided.", Multiline: true},
	)

	AddressDomainLayout = NewLayout(
		Section{Key: KeyAddressValidity, Label: "Address Validity", Default: "Unable to determine."},
		Section{Key: KeyDomainStatus, Label: "Domain Status", Default: "None provided."},
		Section{Key: KeyDetailedAnalysis, Label: "Detailed Analysis", Default: "No detailed analysis provided.", Multiline: true},
	)
)

// LayoutFor returns the reply layout for a scan kind
func LayoutFor(kind models.ScanKind) *Layout {
	switch kind {
	case models.ScanKindJobListing:
		return JobListingLayout
	case models.ScanKindAddressDomain:
		return AddressDomainLayout
	default:
		return EmailLayout
	}
}

// Defaults returns every section set to its default value
func (l *Layout) Defaults() map[string]string {
	out := make(map[string]string, len(l.sections))
	for _, s := range l.sections {
		out[s.Key] = s.Default
	}
	return out
}

// Parse extracts every section from raw. Missing or empty sections take
// their default, so the result always has one non-empty value per key.
// A multi-line body runs until the label of a later, still unfilled section;
// repeated or earlier labels inside it stay part of the text.
func (l *Layout) Parse(raw string) map[string]string {
	out := l.Defaults()

	matches := l.pattern.FindAllStringSubmatchIndex(raw, -1)
	filled := make(map[string]bool, len(l.sections))
	for i := 0; i < len(matches); {
		m := matches[i]
		idx, ok := l.index(raw[m[2]:m[3]])
		if !ok || filled[l.sections[idx].Key] {
			i++
			continue
		}
		sec := l.sections[idx]

		next := i + 1
		for ; next < len(matches); next++ {
			n := matches[next]
			j, ok := l.index(raw[n[2]:n[3]])
			if !ok || filled[l.sections[j].Key] {
				continue
			}
			if !sec.Multiline || j > idx {
				break
			}
		}
		end := len(raw)
		if next < len(matches) {
			end = matches[next][0]
		}
		if v := sectionValue(raw[m[1]:end], sec.Multiline); v != "" {
			out[sec.Key] = v
			filled[sec.Key] = true
		}
		i = next
	}
	return out
}

func (l *Layout) index(label string) (int, bool) {
	for i, s := range l.sections {
		if strings.EqualFold(s.Label, label) {
			return i, true
		}
	}
	return 0, false
}

// sectionValue keeps the first non-empty line for single-line sections and
// the whole body for multi-line ones.
func sectionValue(body string, multiline bool) string {
	if multiline {
		return cleanValue(body)
	}
	for _, line := range strings.Split(body, "\n") {
		if v := cleanValue(line); v != "" {
			return v
		}
	}
	return ""
}

func cleanValue(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_"))
}

// SplitKeywords turns a comma list into keywords; "None" means no keywords
func SplitKeywords(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(strings.TrimRight(s, "."), "none") {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EmailSections is a typed view of an email reply
type EmailSections struct {
	ScamLikelihood     string
	SuspiciousKeywords []string
	DetailedAnalysis   string
	RecommendedAction  string
}

// ParseEmail parses an email analysis reply
func ParseEmail(raw string) EmailSections {
	p := EmailLayout.Parse(raw)
	return EmailSections{
		ScamLikelihood:     p[KeyScamLikelihood],
		SuspiciousKeywords: SplitKeywords(p[KeyKeywords]),
		DetailedAnalysis:   p[KeyDetailedAnalysis],
		RecommendedAction:  p[KeyRecommendedAction],
	}
}

// JobListingSections is a typed view of a job listing reply
type JobListingSections struct {
	ScamLikelihood     string
	SuspiciousKeywords []string
	DetailedAnalysis   string
}

// ParseJobListing parses a job listing analysis reply
func ParseJobListing(raw string) JobListingSections {
	p := JobListingLayout.Parse(raw)
	return JobListingSections{
		ScamLikelihood:     p[KeyScamLikelihood],
		SuspiciousKeywords: SplitKeywords(p[KeyKeywords]),
		DetailedAnalysis:   p[KeyDetailedAnalysis],
	}
}

// AddressSections is a typed view of an address/domain reply
type AddressSections struct {
	AddressValidity  string
	DomainStatus     string
	DetailedAnalysis string
}

// ParseAddressDomain parses an address/domain verification reply
func ParseAddressDomain(raw string) AddressSections {
	p := AddressDomainLayout.Parse(raw)
	return AddressSections{
		AddressValidity:  p[KeyAddressValidity],
		DomainStatus:     p[KeyDomainStatus],
		DetailedAnalysis: p[KeyDetailedAnalysis],
	}
}

// AddressFactors derives aggregator signals from an address/domain reply
func (s AddressSections) AddressFactors() models.FactorSet {
	f := models.FactorSet{
		SuspiciousKeywords: []string{},
		DomainValidity:     models.DomainValid,
		AddressFormat:      models.AddressValid,
	}
	if strings.Contains(s.DomainStatus, "Invalid") {
		f.DomainValidity = models.DomainInvalid
	}
	if strings.Contains(s.AddressValidity, "Invalid") {
		f.AddressFormat = models.AddressInvalid
	}
	return f
}

var scorePattern = regexp.MustCompile(`-?\d+(?:[.,]\d+)*`)

// ParseScore reads a scoring-only reply. The first standalone whole number
// is used when it lies in [0,100]; range bounds ("0-100") and denominators
// ("/100") are skipped. Negative, fractional, grouped, out-of-range or
// missing numbers yield the Unavailable sentinel.
func ParseScore(raw string) models.FraudScore {
	raw = strings.TrimSpace(raw)
	for _, loc := range scorePattern.FindAllStringIndex(raw, -1) {
		if isRangeOrRatio(raw, loc[0], loc[1]) {
			continue
		}
		tok := raw[loc[0]:loc[1]]
		if strings.ContainsAny(tok, ".,") {
			return models.UnavailableScore()
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 || v > 100 {
			return models.UnavailableScore()
		}
		return models.NewFraudScore(v)
	}
	return models.UnavailableScore()
}

// isRangeOrRatio reports whether the number at raw[start:end] is one side of
// "a-b" or the denominator of "a/b".
func isRangeOrRatio(raw string, start, end int) bool {
	if end+1 < len(raw) && raw[end] == '-' && isDigit(raw[end+1]) {
		return true
	}
	if start > 0 && raw[start] == '-' && isDigit(raw[start-1]) {
		return true
	}
	if start > 0 && raw[start-1] == '/' {
		return true
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
