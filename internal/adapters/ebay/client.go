package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"dealwatch/internal/domain/listing"
	"dealwatch/internal/metrics"
	"dealwatch/pkg/errors"
	"dealwatch/pkg/logger"
)

const (
	defaultTokenURL  = "https://api.ebay.com/identity/v1/oauth2/token"
	defaultSearchURL = "https://api.ebay.com/buy/browse/v1/item_summary/search"

	oauthScope = "https://api.ebay.com/oauth/api_scope"

	// Tokens are refreshed this long before their reported expiry so a
	// request never rides an about-to-expire token.
	tokenExpirySlack = 120 * time.Second
)

// Config holds the Browse API credentials and request parameters
type Config struct {
	AppID       string
	CertID      string
	Marketplace string
	Limit       int
	HTTPTimeout time.Duration
}

// Client searches the eBay Browse API with an application OAuth token. The
// token is fetched lazily via the client-credentials grant and cached until
// shortly before expiry; auth rejections invalidate the cache so the next
// call starts fresh.
type Client struct {
	cfg   Config
	httpc *http.Client
	log   *logger.Logger

	tokenURL  string
	searchURL string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Browse API client
func NewClient(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:       cfg,
		httpc:     &http.Client{Timeout: timeout},
		log:       logger.Get().With("component", "ebay_client"),
		tokenURL:  defaultTokenURL,
		searchURL: defaultSearchURL,
	}
}

// SearchCategory fetches the newest listings in a category. Any failure
// (token refresh, transport, non-2xx status) is logged and counted, and the
// category simply yields no listings for this cycle.
func (c *Client) SearchCategory(ctx context.Context, categoryID int64, priceFilter string) []listing.Listing {
	token, err := c.accessToken(ctx)
	if err != nil {
		c.log.Errorw("Token refresh failed", "category_id", categoryID, "error", err)
		metrics.MarketAPICalls.WithLabelValues("auth_error").Inc()
		return nil
	}

	params := url.Values{}
	params.Set("category_ids", strconv.FormatInt(categoryID, 10))
	params.Set("filter", "buyingOptions:{FIXED_PRICE|AUCTION}"+priceFilter)
	params.Set("sort", "newlyListed")
	params.Set("limit", strconv.Itoa(c.cfg.Limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		c.log.Errorw("Build search request failed", "category_id", categoryID, "error", err)
		metrics.MarketAPICalls.WithLabelValues("transport_error").Inc()
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", c.cfg.Marketplace)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Errorw("Search request failed", "category_id", categoryID, "error", err)
		metrics.MarketAPICalls.WithLabelValues("transport_error").Inc()
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.log.Warnw("Search rejected, invalidating token",
			"category_id", categoryID,
			"status", resp.StatusCode,
		)
		c.invalidateToken()
		metrics.MarketAPICalls.WithLabelValues("auth_error").Inc()
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Errorw("Search returned non-success status",
			"category_id", categoryID,
			"status", resp.StatusCode,
		)
		metrics.MarketAPICalls.WithLabelValues("http_error").Inc()
		return nil
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Errorw("Decode search response failed", "category_id", categoryID, "error", err)
		metrics.MarketAPICalls.WithLabelValues("http_error").Inc()
		return nil
	}

	metrics.MarketAPICalls.WithLabelValues("success").Inc()

	out := make([]listing.Listing, 0, len(body.ItemSummaries))
	for i := range body.ItemSummaries {
		l, ok := body.ItemSummaries[i].toListing()
		if !ok {
			c.log.Debugw("Skipping listing without numeric item id",
				"item_id", body.ItemSummaries[i].ItemID,
			)
			continue
		}
		out = append(out, l)
	}
	return out
}

// accessToken returns the cached application token, refreshing it when the
// cache is empty or inside the expiry slack window.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", oauthScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "build token request")
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.AppID + ":" + c.cfg.CertID))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", errors.Wrap(errors.ErrTokenRefresh, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", errors.Wrapf(errors.ErrTokenRefresh, "token endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", errors.Wrap(errors.ErrTokenRefresh, err.Error())
	}
	if body.AccessToken == "" {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", errors.Wrap(errors.ErrTokenRefresh, "empty access token")
	}

	c.token = body.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - tokenExpirySlack)

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	c.log.Infow("Access token refreshed", "expires_in_sec", body.ExpiresIn)
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

// PriceFilter builds the Browse API price filter clause for the given
// bounds. Returns an empty string when neither bound is set.
func PriceFilter(min, max *decimal.Decimal) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf(",price:[%s..%s],priceCurrency:USD", min.String(), max.String())
	case min != nil:
		return fmt.Sprintf(",price:[%s..],priceCurrency:USD", min.String())
	case max != nil:
		return fmt.Sprintf(",price:[..%s],priceCurrency:USD", max.String())
	default:
		return ""
	}
}
