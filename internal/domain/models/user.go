package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a signed-up account with its per-kind scan counters
type User struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name,omitempty"`
	Image               string    `json:"image,omitempty"`
	Tier                string    `json:"tier"`
	ScanCount           int       `json:"scanCount"`
	JobListingScanCount int       `json:"jobListingScanCount"`
	AddressScanCount    int       `json:"addressScanCount"`
	ResetAt             time.Time `json:"resetAt"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Counter returns the stored counter for a scan kind
func (u *User) Counter(kind ScanKind) int {
	switch kind {
	case ScanKindJobListing:
		return u.JobListingScanCount
	case ScanKindAddressDomain:
		return u.AddressScanCount
	default:
		return u.ScanCount
	}
}

// UserUpdate carries the mutable fields of a user; nil fields are left untouched
type UserUpdate struct {
	Email *string `json:"email,omitempty"`
	Tier  *string `json:"tier,omitempty"`
}

// FlaggedEmail is an email a user saved for later review
type FlaggedEmail struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject,omitempty"`
	Content   string    `json:"content"`
	RiskLevel RiskLevel `json:"riskLevel,omitempty"`
	RedFlags  []string  `json:"redFlags,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
