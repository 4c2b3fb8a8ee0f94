package scoring

import (
	"scamlens/internal/domain/models"
)

// Factor weights. Each condition contributes at most once.
const (
	WeightSuspiciousKeywords = 35
	WeightInvalidDomain      = 25
	WeightUrgency            = 20
	WeightFormattingIssues   = 20

	// Address and job-listing scans substitute these signals into the
	// keyword and urgency slots respectively.
	WeightInvalidAddress       = WeightSuspiciousKeywords
	WeightJobDescriptionIssues = WeightUrgency

	MaxScore = 100
)

// Contribution is one factor that added to a score
type Contribution struct {
	Factor string `json:"factor"`
	Points int    `json:"points"`
}

// Score maps a factor set to a fraud score in [0,100]. Absent factors contribute 0.
func Score(f models.FactorSet) int {
	total := 0
	for _, c := range Explain(f) {
		total += c.Points
	}
	return clamp(total, 0, MaxScore)
}

// FraudScore wraps Score in the models type
func FraudScore(f models.FactorSet) models.FraudScore {
	return models.NewFraudScore(Score(f))
}

// Explain lists the factors that contributed, in weight-table order
func Explain(f models.FactorSet) []Contribution {
	var out []Contribution
	if len(f.SuspiciousKeywords) > 0 {
		out = append(out, Contribution{Factor: "suspiciousKeywords", Points: WeightSuspiciousKeywords})
	}
	if f.DomainValidity == models.DomainInvalid {
		out = append(out, Contribution{Factor: "domainValidity", Points: WeightInvalidDomain})
	}
	if f.Urgency {
		out = append(out, Contribution{Factor: "urgency", Points: WeightUrgency})
	}
	if f.FormattingIssues {
		out = append(out, Contribution{Factor: "formattingIssues", Points: WeightFormattingIssues})
	}
	if f.AddressFormat == models.AddressInvalid {
		out = append(out, Contribution{Factor: "addressFormat", Points: WeightInvalidAddress})
	}
	if f.JobDescriptionIssues {
		out = append(out, Contribution{Factor: "jobDescriptionIssues", Points: WeightJobDescriptionIssues})
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
