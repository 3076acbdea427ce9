package instruments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"vstocks/internal/model"

	"github.com/shopspring/decimal"
)

var ErrQuoteUnavailable = errors.New("quote unavailable")

// QuoteClient fetches last-traded prices from the external market-data
// provider. It is the un-cached source the price cache wraps.
type QuoteClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewQuoteClient(baseURL string, timeout time.Duration) *QuoteClient {
	return &QuoteClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type quoteResponse struct {
	Symbol string `json:"symbol"`
	LTP    string `json:"ltp"`
}

// LastPrice returns the instrument's last traded price. Any transport or
// payload problem is reported as ErrQuoteUnavailable with the cause attached.
func (c *QuoteClient) LastPrice(ctx context.Context, in model.Instrument) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("exchange", in.Exchange)
	q.Set("symbol", in.Symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: provider returned %d", ErrQuoteUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	var out quoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	price, err := decimal.NewFromString(out.LTP)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: bad ltp %q", ErrQuoteUnavailable, out.LTP)
	}
	return price, nil
}
