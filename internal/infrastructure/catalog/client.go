package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/errors"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/metrics"
	"github.com/retail-platform/stock-service/pkg/resilience"
)

// Product is the part of the catalog's product document the stock service reads
type Product struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	PriceCents int64  `json:"priceCents"`
	IsActive   bool   `json:"isActive"`
}

// Config configures the catalog client
type Config struct {
	BaseURL string
	Timeout time.Duration
	// NameTTL is how long product names are cached for responses
	NameTTL time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: 5 * time.Second,
		NameTTL: 5 * time.Minute,
	}
}

type cachedName struct {
	name    string
	expires time.Time
}

// Client talks to the catalog service. It implements domain.ProductValidator
// and application.ProductNamer.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
	nameTTL    time.Duration

	mu    sync.Mutex
	names map[int64]cachedName
}

// NewClient creates a new catalog Client
func NewClient(config Config, logger *logging.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: resilience.NewCircuitBreaker("catalog", logger, m),
		logger:  logger.WithComponent("catalog-client"),
		nameTTL: config.NameTTL,
		names:   make(map[int64]cachedName),
	}
}

// GetProduct fetches a product. A missing product is (nil, nil).
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	// only transport errors and non-404 statuses count as breaker failures
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.fetch(ctx, productID)
	})
	if err != nil {
		return nil, err
	}
	product, _ := result.(*Product)
	if product != nil {
		c.remember(product)
	}
	return product, nil
}

func (c *Client) fetch(ctx context.Context, productID int64) (*Product, error) {
	url := fmt.Sprintf("%s/api/products/%d", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if correlationID := logging.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("failed to decode product response: %w", err)
	}
	return &product, nil
}

// ValidateProductExists returns domain.ErrProductUnknown or
// domain.ErrProductInactive, or a 503 AppError when the catalog cannot be reached.
func (c *Client) ValidateProductExists(ctx context.Context, productID int64) error {
	product, err := c.GetProduct(ctx, productID)
	if err != nil {
		c.logger.WithError(err).Warn("Catalog lookup failed", "productId", productID)
		return errors.ErrServiceUnavailable("catalog").Wrap(err)
	}
	if product == nil {
		return fmt.Errorf("%w: product %d", domain.ErrProductUnknown, productID)
	}
	if !product.IsActive {
		return fmt.Errorf("%w: product %d", domain.ErrProductInactive, productID)
	}
	return nil
}

// ProductName returns the display name of a product, from cache when fresh
func (c *Client) ProductName(ctx context.Context, productID int64) (string, error) {
	c.mu.Lock()
	cached, ok := c.names[productID]
	c.mu.Unlock()
	if ok && time.Now().Before(cached.expires) {
		return cached.name, nil
	}

	product, err := c.GetProduct(ctx, productID)
	if err != nil {
		return "", err
	}
	if product == nil {
		return "", fmt.Errorf("%w: product %d", domain.ErrProductUnknown, productID)
	}
	return product.Name, nil
}

func (c *Client) remember(product *Product) {
	if c.nameTTL <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[product.ID] = cachedName{name: product.Name, expires: time.Now().Add(c.nameTTL)}
}

// NoopValidator accepts every product. Used when no catalog is configured.
type NoopValidator struct{}

func (NoopValidator) ValidateProductExists(context.Context, int64) error { return nil }
