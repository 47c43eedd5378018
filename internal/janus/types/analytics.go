package types

import "time"

type StatsQuery struct {
	From           *time.Time
	To             *time.Time
	OrganizationID string
	DepartmentID   string
}

// Filtered reports whether the query needs the access-log to card join.
func (q StatsQuery) Filtered() bool {
	return q.OrganizationID != "" || q.DepartmentID != ""
}

type HourBucket struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type AccessSummary struct {
	TotalAccess              int     `json:"total_access"`
	AuthorizedAccess         int     `json:"authorized_access"`
	UnauthorizedAccess       int     `json:"unauthorized_access"`
	CardOnlyVerifications    int     `json:"card_only_verifications"`
	FingerprintVerifications int     `json:"fingerprint_verifications"`
	BothVerifications        int     `json:"both_verifications"`
	AuthorizedPercentage     float64 `json:"authorized_percentage"`
}

type AccessStats struct {
	Summary            AccessSummary `json:"summary"`
	HourlyDistribution []HourBucket  `json:"hourly_distribution"`
}
