package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scamlens/internal/domain/models"
)

func TestDetect_ScenarioFreeTier(t *testing.T) {
	d := NewDetector()

	report := d.Detect("URGENT: wire transfer needed, reply to John at gmail.com", models.TierFree)

	// "gmail.com" has no '@' in front of it, so the free-domain rule stays quiet
	assert.Equal(t, []string{
		`Contains suspicious keyword: "urgent"`,
		`Contains suspicious keyword: "wire transfer"`,
	}, report.RedFlags)
	assert.Equal(t, models.RiskLevelLow, report.RiskLevel)
}

func TestDetect_FreeDomainWithAt(t *testing.T) {
	d := NewDetector()

	report := d.Detect("URGENT: wire transfer needed, reply to john@gmail.com", models.TierFree)

	assert.Equal(t, []string{
		`Contains suspicious keyword: "urgent"`,
		`Contains suspicious keyword: "wire transfer"`,
		`Uses a free email domain: "gmail.com"`,
	}, report.RedFlags)
	assert.Equal(t, models.RiskLevelMedium, report.RiskLevel)
}

func TestDetect_PaidOnlyRules(t *testing.T) {
	d := NewDetector()
	text := "Open http://evil.test and run the attached setup.exe"

	free := d.Detect(text, models.TierFree)
	assert.Empty(t, free.RedFlags)
	assert.Equal(t, models.RiskLevelNone, free.RiskLevel)

	anon := d.Detect(text, models.TierAnonymous)
	assert.Empty(t, anon.RedFlags)

	paid := d.Detect(text, models.TierPaid)
	assert.Equal(t, []string{
		"Suspicious link detected: http://evil.test",
		"Email contains potentially risky attachment types.",
	}, paid.RedFlags)
	assert.Equal(t, models.RiskLevelLow, paid.RiskLevel)
}

func TestDetect_SingleAttachmentFlagForManyHits(t *testing.T) {
	d := NewDetector()

	report := d.Detect("files: a.exe b.zip c.js", models.TierPaid)

	require.Len(t, report.RedFlags, 1)
	assert.Equal(t, "Email contains potentially risky attachment types.", report.RedFlags[0])
}

func TestDetect_RuleOrder(t *testing.T) {
	d := NewDetector()
	text := "Reply-To: boss@yahoo.com\nyour hired! Work from home, see https://a.test https://b.test"

	report := d.Detect(text, models.TierPaid)

	assert.Equal(t, []string{
		`Contains suspicious keyword: "work from home"`,
		`Uses a free email domain: "yahoo.com"`,
		`Possible grammatical error: "your hired"`,
		"Sender and reply-to information mismatch.",
		"Suspicious link detected: https://a.test",
		"Suspicious link detected: https://b.test",
	}, report.RedFlags)
	assert.Equal(t, models.RiskLevelHigh, report.RiskLevel)
}

func TestDetect_ReplyToWithFromIsNotMismatch(t *testing.T) {
	d := NewDetector()

	report := d.Detect("From: a@corp.example\nReply-To: b@corp.example", models.TierFree)

	assert.Empty(t, report.RedFlags)
}

func TestDetect_EmptyInput(t *testing.T) {
	d := NewDetector()

	for _, tier := range []models.Tier{models.TierAnonymous, models.TierFree, models.TierPaid} {
		report := d.Detect("", tier)
		assert.NotNil(t, report.RedFlags)
		assert.Empty(t, report.RedFlags)
		assert.Equal(t, models.RiskLevelNone, report.RiskLevel)
	}
}

func TestDetect_Idempotent(t *testing.T) {
	d := NewDetector()
	text := "URGENT wire transfer to john@hotmail.com via http://pay.test/now file.zip"

	first := d.Detect(text, models.TierPaid)
	second := d.Detect(text, models.TierPaid)

	assert.Equal(t, first, second)
}

func TestEmailFactors(t *testing.T) {
	f := EmailFactors("URGENT loan offer, ACT FAST!! click here for money", "promo@deals.xyz")

	assert.Equal(t, []string{"URGENT", "loan", "click here", "money"}, f.SuspiciousKeywords)
	assert.Equal(t, models.DomainInvalid, f.DomainValidity)
	assert.Equal(t, "promo@deals.xyz", f.SenderDomain)
	assert.True(t, f.Urgency)
	assert.True(t, f.FormattingIssues)
}

func TestEmailFactors_Clean(t *testing.T) {
	f := EmailFactors("Hi team, the meeting moved to Tuesday.", "alice@corp.example")

	assert.Empty(t, f.SuspiciousKeywords)
	assert.Equal(t, models.DomainValid, f.DomainValidity)
	assert.False(t, f.Urgency)
	assert.False(t, f.FormattingIssues)
}

func TestJobListingFactors(t *testing.T) {
	f, patterns := JobListingFactors(
		"Data entry, no experience required. Apply urgently.",
		[]string{"no experience required"},
		"Pay is far above market.",
		"The listing promises unrealistic pay.",
	)

	assert.Equal(t, []string{"no experience required", "unrealistic pay"}, patterns)
	assert.True(t, f.JobDescriptionIssues)
	assert.Equal(t, []string{"no experience required"}, f.SuspiciousKeywords)
	assert.Equal(t, models.DomainUnknown, f.DomainValidity)
	assert.False(t, f.Urgency)
	assert.False(t, f.FormattingIssues)
}

func TestJobListingFactors_VagueAnalysis(t *testing.T) {
	f, patterns := JobListingFactors("Marketing associate", nil, "The duties are Vague and the company is unnamed.", "")

	assert.Empty(t, patterns)
	assert.True(t, f.JobDescriptionIssues)
	assert.NotNil(t, f.SuspiciousKeywords)
	assert.Empty(t, f.SuspiciousKeywords)
}

func TestJobListingFactors_Clean(t *testing.T) {
	f, patterns := JobListingFactors("Senior engineer, urgent hire!!", []string{}, "Looks legitimate.", "Nothing stands out.")

	assert.Empty(t, patterns)
	assert.False(t, f.JobDescriptionIssues)
	assert.False(t, f.Urgency)
}

func TestJobListingFactors_NoDuplicatePatterns(t *testing.T) {
	_, patterns := JobListingFactors("No experience required", nil, "", "no experience required")

	assert.Equal(t, []string{"no experience required"}, patterns)
}
