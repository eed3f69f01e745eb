package consumer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// MessageParser decodes a queue message body into an attribution event
type MessageParser interface {
	Parse(body []byte) (*domain.AttributionEvent, error)
}

// JSONEventParser implements MessageParser for JSON-encoded AttributionEvents
type JSONEventParser struct {
	now func() time.Time
}

// NewJSONEventParser creates a new JSON event parser
func NewJSONEventParser() *JSONEventParser {
	return &JSONEventParser{now: time.Now}
}

// Parse decodes a message published by the API. Messages missing the fields
// the event store keys on are rejected.
func (p *JSONEventParser) Parse(body []byte) (*domain.AttributionEvent, error) {
	var event domain.AttributionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message body: %w", err)
	}

	switch {
	case event.EventID == "":
		return nil, errors.New("event_id is missing")
	case event.CampaignID == "":
		return nil, errors.New("campaign_id is missing")
	case event.ListenerKey == "":
		return nil, errors.New("listener_key is missing")
	case !event.Method.Valid():
		return nil, fmt.Errorf("unsupported method: %q", event.Method)
	case event.OccurredAt.IsZero():
		return nil, errors.New("occurred_at is missing")
	}

	if event.IngestedAt.IsZero() {
		event.IngestedAt = p.now().UTC()
	}
	return &event, nil
}
