package consumer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

func TestJSONEventParser_Parse(t *testing.T) {
	v := 25.0
	published := &domain.AttributionEvent{
		EventID:         "evt-1",
		CampaignID:      "cmp-1",
		OccurredAt:      testOccurredAt,
		Method:          domain.MethodPromoCode,
		Payload:         domain.PromoCodePayload{Code: "PODCAST20", OrderID: "o-1"},
		ListenerKey:     "listener-1",
		ConversionValue: &v,
		Identity:        domain.IdentityHints{CustomerID: "cust-1"},
	}
	body, err := json.Marshal(published)
	require.NoError(t, err)

	parser := NewJSONEventParser()
	ingested := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	parser.now = func() time.Time { return ingested }

	event, err := parser.Parse(body)
	require.NoError(t, err)
	assert.Equal(t, domain.PromoCodePayload{Code: "PODCAST20", OrderID: "o-1"}, event.Payload)
	assert.Equal(t, 25.0, event.Value())
	assert.Equal(t, "cust-1", event.Identity.CustomerID)
	assert.Equal(t, ingested, event.IngestedAt)
}

func TestJSONEventParser_Rejects(t *testing.T) {
	parser := NewJSONEventParser()

	tests := map[string]string{
		"invalid json":     `{invalid}`,
		"missing event id": `{"campaign_id":"c","listener_key":"l","method":"pixel","occurred_at":"2026-03-01T12:00:00Z"}`,
		"missing campaign": `{"event_id":"e","listener_key":"l","method":"pixel","occurred_at":"2026-03-01T12:00:00Z"}`,
		"missing listener": `{"event_id":"e","campaign_id":"c","method":"pixel","occurred_at":"2026-03-01T12:00:00Z"}`,
		"unknown method":   `{"event_id":"e","campaign_id":"c","listener_key":"l","method":"fax","occurred_at":"2026-03-01T12:00:00Z"}`,
		"missing time":     `{"event_id":"e","campaign_id":"c","listener_key":"l","method":"pixel"}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parser.Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}
