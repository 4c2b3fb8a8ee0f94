package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scamlens/internal/domain/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		factors models.FactorSet
		want    int
	}{
		{
			name:    "empty factor set",
			factors: models.FactorSet{},
			want:    0,
		},
		{
			name: "all four email factors",
			factors: models.FactorSet{
				SuspiciousKeywords: []string{"urgent"},
				DomainValidity:     models.DomainInvalid,
				Urgency:            true,
				FormattingIssues:   true,
			},
			want: 100,
		},
		{
			name:    "keywords only, magnitude ignored",
			factors: models.FactorSet{SuspiciousKeywords: []string{"loan", "money", "money", "urgent"}},
			want:    35,
		},
		{
			name:    "valid and unknown domains contribute nothing",
			factors: models.FactorSet{DomainValidity: models.DomainValid},
			want:    0,
		},
		{
			name:    "unknown domain",
			factors: models.FactorSet{DomainValidity: models.DomainUnknown},
			want:    0,
		},
		{
			name:    "invalid domain and urgency",
			factors: models.FactorSet{DomainValidity: models.DomainInvalid, Urgency: true},
			want:    45,
		},
		{
			name:    "address scan with invalid address and domain",
			factors: models.FactorSet{DomainValidity: models.DomainInvalid, AddressFormat: models.AddressInvalid},
			want:    60,
		},
		{
			name:    "address scan valid",
			factors: models.FactorSet{DomainValidity: models.DomainValid, AddressFormat: models.AddressValid},
			want:    0,
		},
		{
			name: "job listing issues",
			factors: models.FactorSet{
				JobDescriptionIssues: true,
				FormattingIssues:     true,
			},
			want: 40,
		},
		{
			name: "every signal at once is clamped",
			factors: models.FactorSet{
				SuspiciousKeywords:   []string{"urgent"},
				DomainValidity:       models.DomainInvalid,
				Urgency:              true,
				FormattingIssues:     true,
				AddressFormat:        models.AddressInvalid,
				JobDescriptionIssues: true,
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.factors)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, MaxScore)
		})
	}
}

func TestScore_BoundedForAllCombinations(t *testing.T) {
	domains := []models.DomainValidity{"", models.DomainValid, models.DomainInvalid, models.DomainUnknown}
	addresses := []models.AddressFormat{"", models.AddressValid, models.AddressInvalid}

	for mask := 0; mask < 16; mask++ {
		for _, d := range domains {
			for _, a := range addresses {
				f := models.FactorSet{
					DomainValidity:       d,
					AddressFormat:        a,
					Urgency:              mask&1 != 0,
					FormattingIssues:     mask&2 != 0,
					JobDescriptionIssues: mask&4 != 0,
				}
				if mask&8 != 0 {
					f.SuspiciousKeywords = []string{"money"}
				}
				s := Score(f)
				assert.True(t, s >= 0 && s <= 100, "score %d out of range for %+v", s, f)
			}
		}
	}
}

func TestExplain(t *testing.T) {
	got := Explain(models.FactorSet{
		SuspiciousKeywords: []string{"loan"},
		FormattingIssues:   true,
	})

	assert.Equal(t, []Contribution{
		{Factor: "suspiciousKeywords", Points: 35},
		{Factor: "formattingIssues", Points: 20},
	}, got)
	assert.Empty(t, Explain(models.FactorSet{}))
}

func TestFraudScore(t *testing.T) {
	s := FraudScore(models.FactorSet{Urgency: true})
	v, ok := s.Value()
	assert.True(t, ok)
	assert.Equal(t, 20, v)
}
