package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scamlens/internal/domain/models"
)

func TestParseEmail_NumberedReply(t *testing.T) {
	raw := `1. Scam Likelihood: High
2. Keywords or Phrases: "wire transfer", urgent, gift card
3. Detailed Analysis: The sender asks for money.
It also impersonates a bank.
4. Recommended Action: Delete the email and block the sender.`

	got := ParseEmail(raw)

	assert.Equal(t, "High", got.ScamLikelihood)
	assert.Equal(t, []string{"wire transfer", "urgent", "gift card"}, got.SuspiciousKeywords)
	assert.Equal(t, "The sender asks for money.\nIt also impersonates a bank.", got.DetailedAnalysis)
	assert.Equal(t, "Delete the email and block the sender.", got.RecommendedAction)
}

func TestParseEmail_MarkdownLabels(t *testing.T) {
	raw := `**Scam Likelihood:** Medium

**Keywords or Phrases:** None

**Detailed Analysis:**
Looks like a generic newsletter.

**Recommended Action:** No action needed.`

	got := ParseEmail(raw)

	assert.Equal(t, "Medium", got.ScamLikelihood)
	assert.Empty(t, got.SuspiciousKeywords)
	assert.NotNil(t, got.SuspiciousKeywords)
	assert.Equal(t, "Looks like a generic newsletter.", got.DetailedAnalysis)
	assert.Equal(t, "No action needed.", got.RecommendedAction)
}

func TestParseEmail_MissingSectionsTakeDefaults(t *testing.T) {
	got := ParseEmail("I cannot help with that.")

	assert.Equal(t, "Not Determined", got.ScamLikelihood)
	assert.Empty(t, got.SuspiciousKeywords)
	assert.Equal(t, "No detailed analysis provided.", got.DetailedAnalysis)
	assert.Equal(t, "None", got.RecommendedAction)
}

func TestParseEmail_EmptyLabelFallsBack(t *testing.T) {
	raw := "Scam Likelihood:\nDetailed Analysis: short"
	got := ParseEmail(raw)

	assert.Equal(t, "Not Determined", got.ScamLikelihood)
	assert.Equal(t, "short", got.DetailedAnalysis)
}

func TestParseEmail_FirstOccurrenceWins(t *testing.T) {
	raw := "Scam Likelihood: Low\nScam Likelihood: High"
	assert.Equal(t, "Low", ParseEmail(raw).ScamLikelihood)
}

func TestParseEmail_RepeatedLabelStaysInAnalysis(t *testing.T) {
	raw := `1. Scam Likelihood: Yes
2. Keywords or Phrases: prize
3. Detailed Analysis: The email says
Scam likelihood: high in similar mails
and more.
4. Recommended Action: Delete`

	got := ParseEmail(raw)

	assert.Equal(t, "Yes", got.ScamLikelihood)
	assert.Equal(t, "The email says\nScam likelihood: high in similar mails\nand more.", got.DetailedAnalysis)
	assert.Equal(t, "Delete", got.RecommendedAction)
}

func TestParseEmail_EarlierLabelInsideAnalysis(t *testing.T) {
	raw := "3. Detailed Analysis: The email says\nScam likelihood: high in similar mails\nand more.\n4. Recommended Action: Delete"

	got := ParseEmail(raw)

	assert.Equal(t, "The email says\nScam likelihood: high in similar mails\nand more.", got.DetailedAnalysis)
	assert.Equal(t, "Delete", got.RecommendedAction)
	assert.Equal(t, "Not Determined", got.ScamLikelihood)
}

func TestParseJobListing(t *testing.T) {
	raw := `- Scam Likelihood: High
- Keywords or Phrases: no experience required
- Detailed Analysis: Pay is unrealistic.`

	got := ParseJobListing(raw)

	assert.Equal(t, "High", got.ScamLikelihood)
	assert.Equal(t, []string{"no experience required"}, got.SuspiciousKeywords)
	assert.Equal(t, "Pay is unrealistic.", got.DetailedAnalysis)
}

func TestParseAddressDomain(t *testing.T) {
	raw := `Address Validity: Invalid - street does not exist
Domain Status: Invalid or suspicious domain
Detailed Analysis: The domain was registered yesterday.`

	got := ParseAddressDomain(raw)

	assert.Equal(t, "Invalid - street does not exist", got.AddressValidity)
	assert.Equal(t, "Invalid or suspicious domain", got.DomainStatus)

	f := got.AddressFactors()
	assert.Equal(t, models.AddressInvalid, f.AddressFormat)
	assert.Equal(t, models.DomainInvalid, f.DomainValidity)
	assert.NotNil(t, f.SuspiciousKeywords)
}

func TestParseAddressDomain_Defaults(t *testing.T) {
	got := ParseAddressDomain("")

	assert.Equal(t, "Unable to determine.", got.AddressValidity)
	assert.Equal(t, "None provided.", got.DomainStatus)
	assert.Equal(t, "No detailed analysis provided.", got.DetailedAnalysis)

	f := got.AddressFactors()
	assert.Equal(t, models.AddressValid, f.AddressFormat)
	assert.Equal(t, models.DomainValid, f.DomainValidity)
}

func TestLayoutFor(t *testing.T) {
	assert.Same(t, EmailLayout, LayoutFor(models.ScanKindEmail))
	assert.Same(t, JobListingLayout, LayoutFor(models.ScanKindJobListing))
	assert.Same(t, AddressDomainLayout, LayoutFor(models.ScanKindAddressDomain))
}

func TestSplitKeywords(t *testing.T) {
	assert.Empty(t, SplitKeywords("None"))
	assert.Empty(t, SplitKeywords("none."))
	assert.Empty(t, SplitKeywords("  "))
	assert.Equal(t, []string{"a", "b"}, SplitKeywords("a, ,b,"))
	assert.Equal(t, []string{"act now"}, SplitKeywords(`'act now'`))
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		raw       string
		want      int
		available bool
	}{
		{"85", 85, true},
		{"Fraud score: 42/100", 42, true},
		{"0", 0, true},
		{"100", 100, true},
		{"250", 0, false},
		{"I cannot score this.", 0, false},
		{"", 0, false},
		{"-5", 0, false},
		{"1,000", 0, false},
		{"42.5", 0, false},
		{"On a 0-100 scale: 85", 85, true},
		{"Score: 73.", 73, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			s := ParseScore(tt.raw)
			v, ok := s.Value()
			require.Equal(t, tt.available, ok)
			if ok {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}
