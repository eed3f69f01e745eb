package normalizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/dedup"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// MockCampaignLookup is a mock implementation of CampaignLookup
type MockCampaignLookup struct {
	mock.Mock
}

func (m *MockCampaignLookup) GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	args := m.Called(ctx, campaignID)
	if c := args.Get(0); c != nil {
		return c.(*domain.Campaign), args.Error(1)
	}
	return nil, args.Error(1)
}

func testCampaign() *domain.Campaign {
	return &domain.Campaign{
		ID:   "cmp-1",
		Cost: 1000,
		PromoCodes: map[string]string{
			"PODCAST20": "",
			"VIP-ANNA":  "cust-42",
		},
	}
}

func newTestNormalizer(t *testing.T) (*Normalizer, *MockCampaignLookup) {
	t.Helper()
	campaigns := new(MockCampaignLookup)
	campaigns.On("GetCampaign", mock.Anything, "cmp-1").Return(testCampaign(), nil).Maybe()
	campaigns.On("GetCampaign", mock.Anything, "cmp-missing").Return(nil, repository.ErrNotFound).Maybe()

	n := New(campaigns, dedup.NewMemoryIndex(), DefaultConfig(), zap.NewNop())
	n.now = func() time.Time { return testNow }
	return n, campaigns
}

func value(v float64) *float64 { return &v }

func promoEvent(code string, at time.Time) *RawEvent {
	return &RawEvent{
		CampaignID:  "cmp-1",
		Method:      domain.MethodPromoCode,
		OccurredAt:  at,
		ListenerKey: "listener-1",
		PromoCode:   &RawPromoCode{Code: code},
	}
}

func directEvent(key string, v *float64) *RawEvent {
	return &RawEvent{
		CampaignID:  "cmp-1",
		Method:      domain.MethodDirectAPI,
		OccurredAt:  testNow.Add(-time.Minute),
		ListenerKey: "listener-1",
		DirectAPI:   &RawDirectAPI{IdempotencyKey: key, ConversionValue: v, Currency: "usd"},
	}
}

func pixelEvent(pageURL string, utm domain.UTMParams, metadata map[string]string) *RawEvent {
	return &RawEvent{
		CampaignID:  "cmp-1",
		Method:      domain.MethodPixel,
		OccurredAt:  testNow.Add(-time.Hour),
		ListenerKey: "listener-1",
		Pixel:       &RawPixel{PageURL: pageURL, UTM: utm, Metadata: metadata},
	}
}

func requireMalformed(t *testing.T, err error, field string) {
	t.Helper()
	var malformedErr *MalformedEventError
	require.True(t, errors.As(err, &malformedErr), "expected MalformedEventError, got %v", err)
	assert.Equal(t, field, malformedErr.Field)
}

func TestNormalize_PromoCode(t *testing.T) {
	n, _ := newTestNormalizer(t)

	event, err := n.Normalize(context.Background(), promoEvent(" vip-anna ", testNow.Add(-time.Hour)))
	require.NoError(t, err)

	assert.Len(t, event.EventID, 64)
	assert.Equal(t, domain.MethodPromoCode, event.Method)
	assert.Equal(t, domain.PromoCodePayload{Code: "VIP-ANNA"}, event.Payload)
	assert.Equal(t, "cust-42", event.Identity.CustomerID)
	assert.False(t, event.IsConversion())
	assert.Equal(t, testNow, event.IngestedAt)
}

func TestNormalize_PromoCodeDedupWithinHourBucket(t *testing.T) {
	n, _ := newTestNormalizer(t)
	ctx := context.Background()
	bucket := testNow.Add(-3 * time.Hour).Truncate(time.Hour)

	first, err := n.Normalize(ctx, promoEvent("PODCAST20", bucket.Add(5*time.Minute)))
	require.NoError(t, err)

	_, err = n.Normalize(ctx, promoEvent("podcast20", bucket.Add(50*time.Minute)))
	var dup *DuplicateEventError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, first.EventID, dup.OriginalEventID)

	_, err = n.Normalize(ctx, promoEvent("PODCAST20", bucket.Add(65*time.Minute)))
	assert.NoError(t, err)
}

func TestNormalize_PromoCodeValidation(t *testing.T) {
	n, _ := newTestNormalizer(t)
	ctx := context.Background()

	_, err := n.Normalize(ctx, promoEvent("", testNow))
	requireMalformed(t, err, "promo_code.code")

	_, err = n.Normalize(ctx, promoEvent("NOT-A-CODE", testNow))
	requireMalformed(t, err, "promo_code.code")

	raw := promoEvent("PODCAST20", testNow)
	raw.PromoCode = nil
	_, err = n.Normalize(ctx, raw)
	requireMalformed(t, err, "promo_code.code")
}

func TestNormalize_Pixel(t *testing.T) {
	n, _ := newTestNormalizer(t)
	ctx := context.Background()

	event, err := n.Normalize(ctx, pixelEvent("https://shop.example.com/?utm_source=podcast&utm_medium=audio", domain.UTMParams{}, nil))
	require.NoError(t, err)
	p, ok := event.Payload.(domain.PixelPayload)
	require.True(t, ok)
	assert.Equal(t, "podcast", p.UTM.Source)
	assert.Equal(t, "audio", p.UTM.Medium)

	_, err = n.Normalize(ctx, pixelEvent("https://shop.example.com/", domain.UTMParams{}, map[string]string{"pixel_id": "px-1"}))
	assert.NoError(t, err)

	_, err = n.Normalize(ctx, pixelEvent("https://shop.example.com/", domain.UTMParams{}, nil))
	requireMalformed(t, err, "pixel")

	_, err = n.Normalize(ctx, pixelEvent("", domain.UTMParams{Source: "podcast"}, nil))
	requireMalformed(t, err, "pixel.page_url")

	_, err = n.Normalize(ctx, pixelEvent("/relative/path", domain.UTMParams{Source: "podcast"}, nil))
	requireMalformed(t, err, "pixel.page_url")
}

func TestNormalize_DirectAPI(t *testing.T) {
	n, _ := newTestNormalizer(t)
	ctx := context.Background()

	event, err := n.Normalize(ctx, directEvent("order-1001", value(49.5)))
	require.NoError(t, err)
	require.True(t, event.IsConversion())
	assert.Equal(t, 49.5, event.Value())
	assert.Equal(t, "USD", event.Payload.(domain.DirectAPIPayload).Currency)

	_, err = n.Normalize(ctx, directEvent("", value(1)))
	requireMalformed(t, err, "direct_api.idempotency_key")

	_, err = n.Normalize(ctx, directEvent("order-1002", nil))
	requireMalformed(t, err, "direct_api.conversion_value")

	_, err = n.Normalize(ctx, directEvent("order-1003", value(-5)))
	requireMalformed(t, err, "direct_api.conversion_value")
}

func TestNormalize_DirectAPIDuplicate(t *testing.T) {
	n, _ := newTestNormalizer(t)
	ctx := context.Background()

	first, err := n.Normalize(ctx, directEvent("order-1001", value(10)))
	require.NoError(t, err)

	_, err = n.Normalize(ctx, directEvent("order-1001", value(10)))
	var dup *DuplicateEventError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, first.EventID, dup.OriginalEventID)
	assert.Equal(t, "idem:cmp-1:order-1001", dup.Key)
}

func TestNormalize_ConcurrentDirectAPIDuplicates(t *testing.T) {
	n, _ := newTestNormalizer(t)
	ctx := context.Background()

	var mu sync.Mutex
	var accepted []*domain.AttributionEvent
	duplicates := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event, err := n.Normalize(ctx, directEvent("order-race", value(99)))
			mu.Lock()
			defer mu.Unlock()
			var dup *DuplicateEventError
			switch {
			case err == nil:
				accepted = append(accepted, event)
			case errors.As(err, &dup):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, accepted, 1)
	assert.Equal(t, 19, duplicates)
}

func TestNormalize_ReleaseAllowsRetry(t *testing.T) {
	n, _ := newTestNormalizer(t)
	ctx := context.Background()

	event, err := n.Normalize(ctx, directEvent("order-1001", value(10)))
	require.NoError(t, err)
	require.NoError(t, n.Release(ctx, event))

	retried, err := n.Normalize(ctx, directEvent("order-1001", value(10)))
	require.NoError(t, err)
	assert.Equal(t, event.EventID, retried.EventID)
}

func TestNormalize_UnknownCampaign(t *testing.T) {
	n, _ := newTestNormalizer(t)

	raw := directEvent("order-1", value(1))
	raw.CampaignID = "cmp-missing"
	_, err := n.Normalize(context.Background(), raw)

	var unknown *UnknownCampaignError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "cmp-missing", unknown.CampaignID)
}

func TestNormalize_RegistryFailureIsWrapped(t *testing.T) {
	campaigns := new(MockCampaignLookup)
	campaigns.On("GetCampaign", mock.Anything, "cmp-1").Return(nil, errors.New("connection refused"))
	n := New(campaigns, dedup.NewMemoryIndex(), DefaultConfig(), zap.NewNop())
	n.now = func() time.Time { return testNow }

	_, err := n.Normalize(context.Background(), directEvent("order-1", value(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to look up campaign")
	campaigns.AssertExpectations(t)
}

func TestNormalize_CommonValidation(t *testing.T) {
	n, campaigns := newTestNormalizer(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*RawEvent)
		field  string
	}{
		{"unknown method", func(r *RawEvent) { r.Method = "carrier_pigeon" }, "method"},
		{"missing campaign", func(r *RawEvent) { r.CampaignID = " " }, "campaign_id"},
		{"missing listener", func(r *RawEvent) { r.ListenerKey = "" }, "listener_key"},
		{"missing timestamp", func(r *RawEvent) { r.OccurredAt = time.Time{} }, "occurred_at"},
		{"future timestamp", func(r *RawEvent) { r.OccurredAt = testNow.Add(time.Minute) }, "occurred_at"},
		{"negative value", func(r *RawEvent) { r.ConversionValue = value(-1) }, "conversion_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := promoEvent("PODCAST20", testNow.Add(-time.Hour))
			tt.mutate(raw)
			_, err := n.Normalize(ctx, raw)
			requireMalformed(t, err, tt.field)
		})
	}

	campaigns.AssertNotCalled(t, "GetCampaign", mock.Anything, mock.Anything)
}

func TestComputeEventID_Deterministic(t *testing.T) {
	a := &domain.AttributionEvent{CampaignID: "c", Method: domain.MethodDirectAPI, Payload: domain.DirectAPIPayload{IdempotencyKey: "k"}}
	b := &domain.AttributionEvent{CampaignID: "c", Method: domain.MethodDirectAPI, Payload: domain.DirectAPIPayload{IdempotencyKey: "k"}, OccurredAt: testNow}
	assert.Equal(t, computeEventID(a), computeEventID(b))

	c := &domain.AttributionEvent{CampaignID: "c", Method: domain.MethodDirectAPI, Payload: domain.DirectAPIPayload{IdempotencyKey: "other"}}
	assert.NotEqual(t, computeEventID(a), computeEventID(c))
}
