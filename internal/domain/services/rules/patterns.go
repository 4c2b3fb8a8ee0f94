package rules

import (
	"regexp"
	"strings"

	"scamlens/internal/domain/models"
)

// Default rule lists
var (
	// EmailKeywords are the phrases reported as individual red flags
	EmailKeywords = []string{"urgent", "wire transfer", "work from home"}

	// FreeEmailDomains are consumer providers rarely used by real employers or banks
	FreeEmailDomains = []string{"gmail.com", "yahoo.com", "hotmail.com"}

	// GrammarSmells are common ungrammatical phrases seen in scam mail
	GrammarSmells = []string{"your hired", "their job", "its a offer"}

	// RiskyExtensions are attachment types worth warning about
	RiskyExtensions = []string{".exe", ".zip", ".js"}

	// RiskyTLDs mark a sender domain as invalid
	RiskyTLDs = []string{".xyz", ".info", ".biz", ".click"}

	// JobRiskyPatterns are phrases typical of fake job offers
	JobRiskyPatterns = []string{"no experience required", "unrealistic pay"}
)

var (
	domainPattern        = regexp.MustCompile(`@([\w.-]+)`)
	linkPattern          = regexp.MustCompile(`https?://\S+`)
	factorKeywordPattern = regexp.MustCompile(`(?i)\b(urgent|loan|money|click here)\b`)
	urgencyPattern       = regexp.MustCompile(`(?i)ACT FAST|URGENTLY`)
	formattingPattern    = regexp.MustCompile(`[A-Z]{4,}|!{2,}`)
)

// MatchKeywords returns each keyword found in text, case-insensitively, in list order
func MatchKeywords(text string, keywords []string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// FirstEmailDomain returns the domain following the first '@' in text
func FirstEmailDomain(text string) (string, bool) {
	m := domainPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	domain := strings.TrimRight(strings.ToLower(m[1]), ".")
	return domain, domain != ""
}

// FreeEmailDomain returns the first address domain in text when it is a free provider
func FreeEmailDomain(text string, providers []string) (string, bool) {
	domain, ok := FirstEmailDomain(text)
	if !ok {
		return "", false
	}
	for _, p := range providers {
		if domain == p {
			return domain, true
		}
	}
	return "", false
}

// ReplyToMismatch reports a Reply-To marker with no From marker in raw text
func ReplyToMismatch(text string) bool {
	return strings.Contains(text, "Reply-To") && !strings.Contains(text, "From")
}

// ExtractLinks returns every http(s) token in order of appearance
func ExtractLinks(text string) []string {
	return linkPattern.FindAllString(text, -1)
}

// HasRiskyAttachment reports whether any risky extension appears in text
func HasRiskyAttachment(text string, extensions []string) bool {
	return len(MatchKeywords(text, extensions)) > 0
}

// ExtractFactorKeywords returns every word-bounded factor keyword occurrence
func ExtractFactorKeywords(text string) []string {
	return factorKeywordPattern.FindAllString(text, -1)
}

// HasUrgency matches "ACT FAST" or "URGENTLY" in any case
func HasUrgency(text string) bool {
	return urgencyPattern.MatchString(text)
}

// HasFormattingIssues matches runs of 4+ capitals or 2+ exclamation marks
func HasFormattingIssues(text string) bool {
	return formattingPattern.MatchString(text)
}

// SenderDomainValidity classifies a sender address or bare domain by its TLD.
// An empty sender is Unknown.
func SenderDomainValidity(sender string) models.DomainValidity {
	domain := strings.ToLower(strings.TrimSpace(sender))
	if i := strings.LastIndex(domain, "@"); i >= 0 {
		domain = domain[i+1:]
	}
	if domain == "" {
		return models.DomainUnknown
	}
	for _, tld := range RiskyTLDs {
		if strings.HasSuffix(domain, tld) {
			return models.DomainInvalid
		}
	}
	return models.DomainValid
}

// JobDescriptionIssues returns the risky job-offer phrases found in text
func JobDescriptionIssues(text string) []string {
	return MatchKeywords(text, JobRiskyPatterns)
}
