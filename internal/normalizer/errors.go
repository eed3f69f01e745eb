package normalizer

import "fmt"

// MalformedEventError is returned when a required field is missing or invalid
type MalformedEventError struct {
	Field  string
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event: %s %s", e.Field, e.Reason)
}

// UnknownCampaignError is returned when the referenced campaign is not registered
type UnknownCampaignError struct {
	CampaignID string
}

func (e *UnknownCampaignError) Error() string {
	return fmt.Sprintf("unknown campaign: %s", e.CampaignID)
}

// DuplicateEventError is returned when the event's dedup key was already
// recorded. OriginalEventID is the event that holds the key.
type DuplicateEventError struct {
	Key             string
	OriginalEventID string
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("duplicate event: %s already recorded as %s", e.Key, e.OriginalEventID)
}

func malformed(field, reason string) error {
	return &MalformedEventError{Field: field, Reason: reason}
}
