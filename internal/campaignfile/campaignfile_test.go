package campaignfile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	input := `
campaigns:
  - id: cmp-1
    name: Spring launch
    cost: 1000
    start_date: 2026-03-01
    end_date: 2026-03-31
    promo_codes:
      podcast20: ""
      " vip-anna ": cust-42
  - id: cmp-2
    cost: 0
`
	campaigns, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, campaigns, 2)

	c := campaigns[0]
	assert.Equal(t, "cmp-1", c.ID)
	assert.Equal(t, 1000.0, c.Cost)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), c.StartDate)
	assert.Equal(t, map[string]string{"PODCAST20": "", "VIP-ANNA": "cust-42"}, c.PromoCodes)
	assert.Empty(t, campaigns[1].PromoCodes)
}

func TestLoad_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":          ``,
		"missing id":     "campaigns:\n  - cost: 10\n",
		"negative cost":  "campaigns:\n  - id: c\n    cost: -1\n",
		"reversed dates": "campaigns:\n  - id: c\n    start_date: 2026-03-02\n    end_date: 2026-03-01\n",
		"duplicate id":   "campaigns:\n  - id: c\n  - id: c\n",
		"duplicate code": "campaigns:\n  - id: c\n    promo_codes:\n      abc: \"\"\n      ABC: \"\"\n",
		"unknown field":  "campaigns:\n  - id: c\n    budget: 10\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}
