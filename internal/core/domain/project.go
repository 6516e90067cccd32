package domain

import "time"

// DateLayout is the wire format for all project and task dates.
const DateLayout = "2006-01-02"

// Project is a container for tasks. Dates travel as plain YYYY-MM-DD strings;
// an empty string means the date is unset.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	OwnerID     int64  `json:"owner_id"`
}

// ValidateDates enforces the end-after-start invariant. The server does not
// check this, so the client must before any optimistic apply.
func (p Project) ValidateDates() error {
	if p.StartDate == "" || p.EndDate == "" {
		return nil
	}
	start, err := time.Parse(DateLayout, p.StartDate)
	if err != nil {
		return ErrBadDate
	}
	end, err := time.Parse(DateLayout, p.EndDate)
	if err != nil {
		return ErrBadDate
	}
	if end.Before(start) {
		return ErrDateRange
	}
	return nil
}

// Duration renders the project date range for display, e.g. "2025-01-01 → 2025-06-30".
func (p Project) Duration() string {
	if p.StartDate == "" && p.EndDate == "" {
		return ""
	}
	return p.StartDate + " → " + p.EndDate
}
