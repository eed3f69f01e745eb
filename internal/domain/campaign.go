package domain

import (
	"strings"
	"time"
)

// Campaign is the registry view of a sponsorship campaign
type Campaign struct {
	ID        string    `json:"campaign_id" yaml:"id"`
	Name      string    `json:"name,omitempty" yaml:"name"`
	Cost      float64   `json:"cost" yaml:"cost"`
	StartDate time.Time `json:"start_date" yaml:"start_date"`
	EndDate   time.Time `json:"end_date" yaml:"end_date"`

	// PromoCodes maps a normalized promo code to the known customer it was
	// issued to, or to an empty string for public codes.
	PromoCodes map[string]string `json:"promo_codes" yaml:"promo_codes"`
}

// NormalizeCode canonicalizes a promo code for lookups and dedup keys
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InWindow reports whether an event at t falls inside the campaign flight.
// A zero date leaves that side open and a midnight EndDate covers its whole
// day. Conversions after EndDate still count.
func (c *Campaign) InWindow(t time.Time, conversion bool) bool {
	if !c.StartDate.IsZero() && t.Before(c.StartDate) {
		return false
	}
	if c.EndDate.IsZero() || conversion {
		return true
	}
	end := c.EndDate
	if end.Equal(end.Truncate(24 * time.Hour)) {
		end = end.Add(24 * time.Hour)
	}
	return t.Before(end)
}

// LookupCode reports whether code is registered and returns its customer id, if any
func (c *Campaign) LookupCode(code string) (string, bool) {
	customer, ok := c.PromoCodes[NormalizeCode(code)]
	return customer, ok
}
