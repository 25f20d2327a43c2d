package domain

import "time"

// Subscription tracks a requester's prepaid report balance.
type Subscription struct {
	RequesterID      string
	ReportsRemaining int
	TotalReports     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CanGenerateReport reports whether the balance covers one more report.
func (s *Subscription) CanGenerateReport() bool {
	return s.ReportsRemaining > 0
}
