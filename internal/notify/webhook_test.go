package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealwatch/internal/domain/deal"
	"dealwatch/internal/domain/listing"
	"dealwatch/internal/domain/rule"
)

func TestWebhook_Notify(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &body))
	}))
	defer srv.Close()

	ev := Event{
		Listing: &listing.Listing{
			Title: "RTX 3080 & box",
			Price: listing.Price{Value: dec("420"), Currency: "USD"},
			URL:   "https://www.ebay.com/itm/123",
		},
		Rule: &rule.WatchRule{Name: "gpu-deals"},
		Tier: deal.TierGreat,
	}

	err := NewWebhook(srv.URL).Notify(context.Background(), ev)
	require.NoError(t, err)

	content, ok := body["content"]
	require.True(t, ok)
	assert.Contains(t, content, "Great Deal")
	assert.Contains(t, content, "gpu-deals")
	assert.Contains(t, content, "RTX 3080 & box", "title round-trips as plain text")
	assert.NotContains(t, content, "<b>", "markup is stripped for plain-text sinks")
	assert.NotContains(t, content, "&amp;")
}

func TestWebhook_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ev := Event{
		Listing: &listing.Listing{Title: "x"},
		Rule:    &rule.WatchRule{Name: "r"},
	}

	assert.Error(t, NewWebhook(srv.URL).Notify(context.Background(), ev))
}
