package rules

import (
	"fmt"
	"slices"
	"strings"

	"scamlens/internal/domain/models"
)

const (
	flagMismatch   = "Sender and reply-to information mismatch."
	flagAttachment = "Email contains potentially risky attachment types."
)

// Detector applies the pattern rules to an email body. It holds no mutable
// state and is safe for concurrent use.
type Detector struct {
	keywords        []string
	freeDomains     []string
	grammarSmells   []string
	riskyExtensions []string
}

// NewDetector creates a detector using the default rule lists
func NewDetector() *Detector {
	return &Detector{
		keywords:        EmailKeywords,
		freeDomains:     FreeEmailDomains,
		grammarSmells:   GrammarSmells,
		riskyExtensions: RiskyExtensions,
	}
}

// Detect runs the rules in display order: keywords, free domain, grammar,
// reply-to mismatch, then links and attachments for the paid tier only.
func (d *Detector) Detect(text string, tier models.Tier) models.RedFlagReport {
	flags := []string{}

	for _, kw := range MatchKeywords(text, d.keywords) {
		flags = append(flags, fmt.Sprintf("Contains suspicious keyword: %q", kw))
	}

	if domain, ok := FreeEmailDomain(text, d.freeDomains); ok {
		flags = append(flags, fmt.Sprintf("Uses a free email domain: %q", domain))
	}

	for _, phrase := range MatchKeywords(text, d.grammarSmells) {
		flags = append(flags, fmt.Sprintf("Possible grammatical error: %q", phrase))
	}

	if ReplyToMismatch(text) {
		flags = append(flags, flagMismatch)
	}

	if tier == models.TierPaid {
		for _, link := range ExtractLinks(text) {
			flags = append(flags, "Suspicious link detected: "+link)
		}
		if HasRiskyAttachment(text, d.riskyExtensions) {
			flags = append(flags, flagAttachment)
		}
	}

	return models.NewRedFlagReport(flags)
}

// EmailFactors extracts the aggregator signals for an email scan
func EmailFactors(text, sender string) models.FactorSet {
	return models.FactorSet{
		SuspiciousKeywords: ExtractFactorKeywords(text),
		DomainValidity:     SenderDomainValidity(sender),
		SenderDomain:       sender,
		Urgency:            HasUrgency(text),
		FormattingIssues:   HasFormattingIssues(text),
	}
}

// JobListingFactors extracts the aggregator signals for a job listing.
// Keywords come from the oracle's analysis, and description issues are the
// risky phrases found in the listing or the reply, or an analysis that calls
// the listing vague. Urgency and formatting are not scored for listings.
func JobListingFactors(text string, keywords []string, analysis, oracleReply string) (models.FactorSet, []string) {
	patterns := JobDescriptionIssues(text)
	for _, p := range JobDescriptionIssues(oracleReply) {
		if !slices.Contains(patterns, p) {
			patterns = append(patterns, p)
		}
	}
	if keywords == nil {
		keywords = []string{}
	}
	return models.FactorSet{
		SuspiciousKeywords:   keywords,
		DomainValidity:       models.DomainUnknown,
		JobDescriptionIssues: len(patterns) > 0 || strings.Contains(strings.ToLower(analysis), "vague"),
	}, patterns
}
