package campaignfile

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// File is the on-disk layout of a campaign import
type File struct {
	Campaigns []domain.Campaign `yaml:"campaigns"`
}

// Load decodes and validates a campaign import. Promo codes are normalized so
// registry lookups match ingest-time normalization.
func Load(r io.Reader) ([]domain.Campaign, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("campaign file is empty")
		}
		return nil, fmt.Errorf("failed to decode campaign file: %w", err)
	}

	seen := make(map[string]bool, len(f.Campaigns))
	for i := range f.Campaigns {
		c := &f.Campaigns[i]
		if err := validate(c); err != nil {
			return nil, fmt.Errorf("campaign %d: %w", i, err)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("campaign %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = true

		codes := make(map[string]string, len(c.PromoCodes))
		for code, customer := range c.PromoCodes {
			normalized := domain.NormalizeCode(code)
			if normalized == "" {
				return nil, fmt.Errorf("campaign %s: empty promo code", c.ID)
			}
			if _, dup := codes[normalized]; dup {
				return nil, fmt.Errorf("campaign %s: promo code %q listed twice", c.ID, normalized)
			}
			codes[normalized] = customer
		}
		c.PromoCodes = codes
	}
	return f.Campaigns, nil
}

func validate(c *domain.Campaign) error {
	switch {
	case c.ID == "":
		return errors.New("id is required")
	case c.Cost < 0:
		return fmt.Errorf("cost must not be negative, got %.2f", c.Cost)
	case !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate):
		return errors.New("end_date is before start_date")
	}
	return nil
}
