package ai

import (
	"context"
	"fmt"
	"time"

	"scamlens/internal/domain/models"
	"scamlens/pkg/logger"
)

const emailPrompt = `You are an expert in identifying email scams. Analyze the following email and provide a detailed assessment in this exact format:

1. Scam Likelihood: [Answer "Yes" or "No." Do not use "N/A." Briefly explain why, focusing on red flags such as suspicious sender information, urgency, vague or generic content, requests for personal information, financial offers, unexpected attachments, or links.]
2. Keywords or Phrases: [List specific keywords or phrases that suggest the email might be a scam. If none, respond with "None."]
3. Detailed Analysis: [Provide a clear and detailed explanation. Highlight specific red flags, patterns, or suspicious elements. Analyze the sender's credibility, email formatting, grammar, and the purpose of the email. Mention undue urgency, financial bait, or deceptive tactics.]
4. Recommended Action: [Provide actionable advice for the user, such as "Do not click on any links," "Verify the sender's email address," or "Mark this email as spam."]

If a section does not apply, respond explicitly with "None." Do NOT leave any section blank. Always provide a definitive answer for Scam Likelihood.

Sender: "%s"
Email to analyze: "%s"`

const jobListingPrompt = `You are an expert in identifying scams in job listings. Analyze the following job listing and provide a detailed assessment in this exact format:

1. Scam Likelihood: [Answer "Yes" or "No." Do not use "N/A." Briefly explain why, focusing on red flags like vague descriptions, unrealistic pay, unverifiable company information, or missing details.]
2. Keywords or Phrases: [List specific keywords or phrases that suggest the listing might be a scam. If none, respond with "None."]
3. Detailed Analysis: [Provide a clear and detailed explanation. Highlight specific red flags, patterns, or missing details that make the job listing suspicious.]

If a section does not apply, respond explicitly with "None." Do NOT leave any section blank or use "N/A." Always provide a definitive answer for Scam Likelihood.

Job listing to analyze: "%s"`

const addressPrompt = `You are an expert in validating US based and international addresses and domains for legitimacy. Analyze the following inputs and provide a detailed assessment in this exact format:

1. Address Validity: [Answer "Valid," "Incomplete," or "Invalid." Briefly explain why, focusing on formatting issues, fake patterns, or missing details. Avoid penalizing realistic details.]
2. Domain Status: [Answer "Domain exists," "Unavailable," or "Invalid input." Briefly explain why.]
3. Detailed Analysis: [Provide specific red flags or patterns for both the address and domain separately. Mention any unusual formatting, suspicious details, or signs of legitimacy.]

Address to analyze: "%s"
Domain to analyze: "%s"`

const scorePrompt = `Based on the analysis below, assign a fraud score between 0 and 100, with 0 being completely safe and 100 being highly risky.
Analysis: %s
Provide your score only, without any additional text.`

// Analyst asks the oracle for per-kind analyses under a fixed deadline
type Analyst struct {
	oracle  Oracle
	timeout time.Duration
	logger  *logger.Logger
}

// NewAnalyst creates an analyst. A non-positive timeout falls back to 30s.
func NewAnalyst(oracle Oracle, timeout time.Duration, log *logger.Logger) *Analyst {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Analyst{
		oracle:  oracle,
		timeout: timeout,
		logger:  log.WithComponent("analyst"),
	}
}

// Provider returns the oracle name
func (a *Analyst) Provider() string {
	return a.oracle.Name()
}

// AnalyzeEmail returns the parsed sections and the raw reply
func (a *Analyst) AnalyzeEmail(ctx context.Context, text, sender string) (EmailSections, string, error) {
	raw, err := a.complete(ctx, models.ScanKindEmail, fmt.Sprintf(emailPrompt, sender, text))
	if err != nil {
		return EmailSections{}, "", err
	}
	return ParseEmail(raw), raw, nil
}

// AnalyzeJobListing returns the parsed sections and the raw reply
func (a *Analyst) AnalyzeJobListing(ctx context.Context, text string) (JobListingSections, string, error) {
	raw, err := a.complete(ctx, models.ScanKindJobListing, fmt.Sprintf(jobListingPrompt, text))
	if err != nil {
		return JobListingSections{}, "", err
	}
	return ParseJobListing(raw), raw, nil
}

// VerifyAddress returns the parsed sections and the raw reply
func (a *Analyst) VerifyAddress(ctx context.Context, address, domain string) (AddressSections, string, error) {
	if domain == "" {
		domain = "None provided"
	}
	raw, err := a.complete(ctx, models.ScanKindAddressDomain, fmt.Sprintf(addressPrompt, address, domain))
	if err != nil {
		return AddressSections{}, "", err
	}
	return ParseAddressDomain(raw), raw, nil
}

// Score asks the oracle for a bare fraud score of a previous analysis.
// Unparseable replies yield Unavailable with a nil error.
func (a *Analyst) Score(ctx context.Context, kind models.ScanKind, analysis string) (models.FraudScore, error) {
	raw, err := a.complete(ctx, kind, fmt.Sprintf(scorePrompt, analysis))
	if err != nil {
		return models.UnavailableScore(), err
	}
	score := ParseScore(raw)
	if !score.Available() {
		a.logger.Warn().Str("kind", string(kind)).Str("reply", truncate(raw, 64)).Msg("unparseable score reply")
	}
	return score, nil
}

func (a *Analyst) complete(ctx context.Context, kind models.ScanKind, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.oracle.Complete(ctx, prompt)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str("kind", string(kind)).
			Str("provider", a.oracle.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("oracle call failed")
		return "", fmt.Errorf("oracle %s: %w", a.oracle.Name(), err)
	}
	a.logger.Debug().
		Str("kind", string(kind)).
		Dur("elapsed", time.Since(start)).
		Int("reply_len", len(raw)).
		Msg("oracle reply")
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
