package impact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/cloud-scanner-aws/internal/apperrors"
	"github.com/rshade/cloud-scanner-aws/internal/model"
)

const (
	// DefaultTimeout bounds each impact query.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency bounds the number of in-flight impact queries.
	DefaultConcurrency = 4

	cloudAWSPath = "/v1/cloud/aws"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// BoaviztaClient queries the Boavizta API for the impacts of AWS resources.
// It is safe for concurrent use.
type BoaviztaClient struct {
	baseURL     *url.URL
	httpClient  *http.Client
	timeout     time.Duration
	concurrency int
	logger      zerolog.Logger
}

// ClientOption configures a BoaviztaClient.
type ClientOption func(*BoaviztaClient)

// WithHTTPClient sets the HTTP client used for queries.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(b *BoaviztaClient) {
		if c != nil {
			b.httpClient = c
		}
	}
}

// WithTimeout sets the per-query timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(b *BoaviztaClient) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithConcurrency sets how many queries may be in flight at once.
func WithConcurrency(n int) ClientOption {
	return func(b *BoaviztaClient) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBoaviztaClient creates a client for the API rooted at baseURL.
func NewBoaviztaClient(baseURL string, logger zerolog.Logger, opts ...ClientOption) (*BoaviztaClient, error) {
	parsed, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &BoaviztaClient{
		baseURL: parsed,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
		logger:      logger.With().Str("component", "boavizta").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ParseBaseURL checks that raw is an absolute http(s) URL.
func ParseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.New(apperrors.KindConfig, "boavizta API URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, "invalid boavizta API URL", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, apperrors.Newf(apperrors.KindConfig, "invalid boavizta API URL %q: expected http(s)://host", raw)
	}
	return parsed, nil
}

// BaseURL returns the configured API root.
func (c *BoaviztaClient) BaseURL() string {
	return c.baseURL.String()
}

// GetImpacts implements ImpactProvider. When verbose is set each assessed
// resource is logged; the query sent to the service is the same either way.
func (c *BoaviztaClient) GetImpacts(ctx context.Context, resources []model.CloudResource, useDurationHours float64, verbose bool) ([]model.EstimatedResource, error) {
	if err := ValidateDuration(useDurationHours); err != nil {
		return nil, err
	}

	results := make([]model.EstimatedResource, len(resources))
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i := range resources {
		resource := resources[i].Clone()
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			impacts, err := c.query(ctx, resource, useDurationHours)
			if err != nil && ctx.Err() == nil {
				c.logger.Warn().
					Str("resource_id", resource.ID).
					Str("resource_type", resourceType(resource)).
					Err(err).
					Msg("impacts unavailable, resource left unassessed")
			} else if err == nil && verbose {
				c.logger.Info().
					Str("resource_id", resource.ID).
					Str("resource_type", resourceType(resource)).
					Int("time_workload", Workload(resource.Details)).
					Float64("gwp_use_kgco2eq", impacts.GwpUseKgco2eq).
					Msg("impacts assessed")
			}
			results[i] = model.EstimatedResource{
				Resource:             resource,
				Impacts:              impacts,
				ImpactsDurationHours: useDurationHours,
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := apperrors.FromContext(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// boaviztaRequest is the body of a cloud impact query.
type boaviztaRequest struct {
	UsageLocation string  `json:"usage_location"`
	HoursUseTime  float64 `json:"hours_use_time"`
	TimeWorkload  int     `json:"time_workload"`
}

type boaviztaIndicator struct {
	Manufacture *float64 `json:"manufacture"`
	Use         *float64 `json:"use"`
	Unit        string   `json:"unit"`
}

type boaviztaResponse struct {
	ADP *boaviztaIndicator `json:"adp"`
	GWP *boaviztaIndicator `json:"gwp"`
	PE  *boaviztaIndicator `json:"pe"`
}

func (c *BoaviztaClient) query(ctx context.Context, resource model.CloudResource, hours float64) (*model.ResourceImpacts, error) {
	endpoint := c.endpoint(resourceType(resource))

	body, err := json.Marshal(boaviztaRequest{
		UsageLocation: string(resource.Location.IsoCountry),
		HoursUseTime:  hours,
		TimeWorkload:  Workload(resource.Details),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindImpactQueryFailed, "failed to encode impact request", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindImpactQueryFailed, "failed to build impact request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindImpactQueryFailed, "impact request failed", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("failed to close response body")
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindImpactQueryFailed, "failed to read impact response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Newf(apperrors.KindImpactQueryFailed, "impact service returned status %d: %s",
			resp.StatusCode, truncate(string(data), 200))
	}

	var decoded boaviztaResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, apperrors.Wrap(apperrors.KindImpactQueryFailed, "failed to decode impact response", err)
	}
	impacts, err := decoded.impacts()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindImpactQueryFailed, "incomplete impact response", err)
	}
	return impacts, nil
}

// endpoint builds the query URL. The service is always asked for the
// non-verbose {adp,gwp,pe} shape that impacts() parses.
func (c *BoaviztaClient) endpoint(instanceType string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + cloudAWSPath
	q := url.Values{}
	q.Set("instance_type", instanceType)
	q.Set("verbose", "false")
	q.Set("criteria", "all")
	q.Set("allocation", "TOTAL")
	u.RawQuery = q.Encode()
	return u.String()
}

var errMissingValue = errors.New("missing value")

// impacts converts the response into ResourceImpacts. Every value must be
// present, finite and non-negative.
func (r boaviztaResponse) impacts() (*model.ResourceImpacts, error) {
	var values [6]float64
	fields := []struct {
		name      string
		indicator *boaviztaIndicator
		use       bool
	}{
		{"adp.manufacture", r.ADP, false},
		{"adp.use", r.ADP, true},
		{"pe.manufacture", r.PE, false},
		{"pe.use", r.PE, true},
		{"gwp.manufacture", r.GWP, false},
		{"gwp.use", r.GWP, true},
	}
	for i, field := range fields {
		if field.indicator == nil {
			return nil, fmt.Errorf("%s: %w", field.name, errMissingValue)
		}
		v := field.indicator.Manufacture
		if field.use {
			v = field.indicator.Use
		}
		if v == nil {
			return nil, fmt.Errorf("%s: %w", field.name, errMissingValue)
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			return nil, fmt.Errorf("%s: invalid value %v", field.name, *v)
		}
		values[i] = *v
	}
	return &model.ResourceImpacts{
		AdpManufactureKgsbeq:    values[0],
		AdpUseKgsbeq:            values[1],
		PeManufactureMegajoules: values[2],
		PeUseMegajoules:         values[3],
		GwpManufactureKgco2eq:   values[4],
		GwpUseKgco2eq:           values[5],
	}, nil
}

func resourceType(r model.CloudResource) string {
	if r.Details == nil {
		return ""
	}
	return r.Details.ResourceType()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
