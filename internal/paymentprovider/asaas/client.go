// Package asaas reads customers and payments from an Asaas-compatible REST API.
package asaas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/uaizouk/backoffice/internal/observability/metrics"
	"github.com/uaizouk/backoffice/internal/paymentprovider/domain"
	"github.com/uaizouk/backoffice/internal/phone"
	"github.com/uaizouk/backoffice/internal/ratelimit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	apiKeyHeader    = "access_token"
	maxErrorBody    = 64 << 10
	endpointPayment = "payments.list"
	endpointFind    = "customers.find"
	endpointGet     = "customers.get"
)

type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	MinInterval      time.Duration
	CustomerCacheTTL time.Duration
	UserAgent        string
}

type listResponse[T any] struct {
	HasMore    bool `json:"hasMore"`
	TotalCount int  `json:"totalCount"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	Data       []T  `json:"data"`
}

// Client is safe for concurrent use, though the pacer serializes requests.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
	pacer     *ratelimit.Pacer
	customers *cache.Cache
	metrics   *metrics.ProviderMetrics
	tracer    trace.Tracer
	log       *zap.Logger
}

func New(cfg Config, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key is required", domain.ErrInvalidConfig)
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base url %q", domain.ErrInvalidConfig, cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "backoffice-reconciler"
	}

	c := &Client{
		baseURL:   base.String(),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		userAgent: userAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
		pacer:     ratelimit.NewPacer(cfg.MinInterval),
		metrics:   metrics.Provider(),
		tracer:    otel.Tracer("backoffice/paymentprovider"),
		log:       log.Named("paymentprovider.asaas"),
	}
	if cfg.CustomerCacheTTL > 0 {
		c.customers = cache.New(cfg.CustomerCacheTTL, 2*cfg.CustomerCacheTTL)
	}
	return c, nil
}

func (c *Client) ListPayments(ctx context.Context, filter domain.PaymentFilter, page domain.Page) (domain.PaymentPage, error) {
	query := url.Values{}
	if filter.CreatedAfter != nil {
		query.Set("dateCreated[ge]", filter.CreatedAfter.UTC().Format("2006-01-02"))
	}
	if filter.InstallmentCountGreaterThan != nil {
		query.Set("installmentCount[gt]", strconv.Itoa(*filter.InstallmentCountGreaterThan))
	}
	if page.Limit > 0 {
		query.Set("limit", strconv.Itoa(page.Limit))
	}
	if page.Offset > 0 {
		query.Set("offset", strconv.Itoa(page.Offset))
	}

	var resp listResponse[domain.Payment]
	if err := c.get(ctx, endpointPayment, "/payments", query, &resp); err != nil {
		return domain.PaymentPage{}, err
	}
	return domain.PaymentPage{
		Items:      resp.Data,
		HasMore:    resp.HasMore,
		TotalCount: resp.TotalCount,
	}, nil
}

func (c *Client) FindCustomerByTaxID(ctx context.Context, taxID string) (*domain.Customer, error) {
	digits := phone.Digits(taxID)
	if digits == "" {
		return nil, nil
	}
	key := "cpf:" + digits
	if cached, ok := c.cached(key); ok {
		customer, _ := cached.(*domain.Customer)
		return customer, nil
	}

	query := url.Values{}
	query.Set("cpfCnpj", digits)
	var resp listResponse[domain.Customer]
	if err := c.get(ctx, endpointFind, "/customers", query, &resp); err != nil {
		return nil, err
	}

	var found *domain.Customer
	for i := range resp.Data {
		if !resp.Data[i].Deleted {
			found = &resp.Data[i]
			break
		}
	}
	c.store(key, found)
	return found, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Customer{}, domain.ErrNotFound
	}
	key := "id:" + id
	if cached, ok := c.cached(key); ok {
		if customer, ok := cached.(domain.Customer); ok {
			return customer, nil
		}
	}

	var customer domain.Customer
	if err := c.get(ctx, endpointGet, "/customers/"+url.PathEscape(id), nil, &customer); err != nil {
		return domain.Customer{}, err
	}
	c.store(key, customer)
	return customer, nil
}

func (c *Client) cached(key string) (any, bool) {
	if c.customers == nil {
		return nil, false
	}
	value, ok := c.customers.Get(key)
	c.metrics.IncCache(ok)
	return value, ok
}

func (c *Client) store(key string, value any) {
	if c.customers != nil {
		c.customers.SetDefault(key, value)
	}
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, "provider "+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", http.MethodGet),
		attribute.String("provider.endpoint", endpoint),
	)

	start := time.Now()
	err := c.do(ctx, path, query, out)
	outcome := classifyOutcome(err)
	c.metrics.ObserveRequest(endpoint, outcome, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		c.log.Debug("provider request failed",
			zap.String("endpoint", endpoint),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("GET %s: %w", path, ctxErr)
		}
		if isTimeout(err) {
			return fmt.Errorf("GET %s: %w", path, domain.ErrProviderTimeout)
		}
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		providerErr := &domain.ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", domain.ErrNotFound, providerErr)
		}
		return providerErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("GET %s: %w", path, domain.ErrProviderTimeout)
		}
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func classifyOutcome(err error) string {
	var providerErr *domain.ProviderError
	switch {
	case err == nil:
		return metrics.ProviderOutcomeOK
	case errors.Is(err, domain.ErrNotFound):
		return metrics.ProviderOutcomeNotFound
	case errors.Is(err, domain.ErrProviderTimeout):
		return metrics.ProviderOutcomeTimeout
	case errors.As(err, &providerErr):
		return metrics.ProviderOutcomeHTTPError
	default:
		return metrics.ProviderOutcomeError
	}
}

var _ domain.Client = (*Client)(nil)
