package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/domain"
	"github.com/johnwards/crmproxy/internal/metrics"
)

const (
	// DefaultBaseURL is HubSpot's public API host.
	DefaultBaseURL = "https://api.hubapi.com"

	// ListLimit is the fixed page size for object listings.
	ListLimit = 50

	// DealToContactAssociationType is HubSpot's built-in deal -> contact
	// association type. Hard-coded; a schema change upstream would make
	// CreateDeal mis-associate without any error.
	DealToContactAssociationType = 3

	// AssociationCategoryHubSpot marks HubSpot-defined association types.
	AssociationCategoryHubSpot = "HUBSPOT_DEFINED"

	defaultTimeout = 30 * time.Second
	service        = "hubspot"
)

// Client calls the HubSpot CRM v3 API with a single static private-app token.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every upstream call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for upstream failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client. An empty baseURL selects DefaultBaseURL.
func New(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ListContacts returns the first page of contacts with the fixed property list.
func (c *Client) ListContacts(ctx context.Context) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(ListLimit))
	q.Set("properties", strings.Join(domain.ContactProperties, ","))
	return c.do(ctx, "list_contacts", http.MethodGet, "/crm/v3/objects/contacts", q, nil)
}

// CreateContact creates a contact from props. Required fields are not checked
// here; HubSpot's own validation error is relayed instead.
func (c *Client) CreateContact(ctx context.Context, props domain.Properties) (json.RawMessage, error) {
	body := map[string]any{"properties": props}
	return c.do(ctx, "create_contact", http.MethodPost, "/crm/v3/objects/contacts", nil, body)
}

// ListDeals returns the first page of deals with the fixed property list.
func (c *Client) ListDeals(ctx context.Context) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(ListLimit))
	q.Set("properties", strings.Join(domain.DealProperties, ","))
	return c.do(ctx, "list_deals", http.MethodGet, "/crm/v3/objects/deals", q, nil)
}

type associationTypeInput struct {
	AssociationCategory string `json:"associationCategory"`
	AssociationTypeID   int    `json:"associationTypeId"`
}

type associationInput struct {
	To    objectID               `json:"to"`
	Types []associationTypeInput `json:"types"`
}

type objectID struct {
	ID string `json:"id"`
}

// CreateDeal creates a deal and, when contactID is non-empty, associates it
// with that contact in the same call.
func (c *Client) CreateDeal(ctx context.Context, props domain.Properties, contactID string) (json.RawMessage, error) {
	assocs := []associationInput{}
	if contactID != "" {
		assocs = append(assocs, associationInput{
			To: objectID{ID: contactID},
			Types: []associationTypeInput{{
				AssociationCategory: AssociationCategoryHubSpot,
				AssociationTypeID:   DealToContactAssociationType,
			}},
		})
	}
	body := map[string]any{
		"properties":   props,
		"associations": assocs,
	}
	return c.do(ctx, "create_deal", http.MethodPost, "/crm/v3/objects/deals", nil, body)
}

// ContactDealIDs returns the IDs of deals associated with contactID in the
// order HubSpot lists them.
func (c *Client) ContactDealIDs(ctx context.Context, contactID string) ([]string, error) {
	path := "/crm/v3/objects/contacts/" + url.PathEscape(contactID) + "/associations/deals"
	raw, err := c.do(ctx, "contact_deal_associations", http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode associations: %w", err)
	}

	ids := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		ids[i] = r.ID
	}
	return ids, nil
}

// BatchReadDeals hydrates the given deal IDs. A response that reports
// per-input errors is returned as a single *Error so callers never see a
// partial result set.
func (c *Client) BatchReadDeals(ctx context.Context, ids []string) (json.RawMessage, error) {
	inputs := make([]objectID, len(ids))
	for i, id := range ids {
		inputs[i] = objectID{ID: id}
	}
	body := map[string]any{
		"inputs":     inputs,
		"properties": domain.DealProperties,
	}

	const op = "batch_read_deals"
	raw, err := c.do(ctx, op, http.MethodPost, "/crm/v3/objects/deals/batch/read", nil, body)
	if err != nil {
		return nil, err
	}

	var summary struct {
		NumErrors int               `json:"numErrors"`
		Errors    []json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decode batch read: %w", err)
	}
	if summary.NumErrors > 0 || len(summary.Errors) > 0 {
		n := max(summary.NumErrors, len(summary.Errors))
		return nil, &Error{
			Operation: op,
			Status:    http.StatusBadGateway,
			Message:   fmt.Sprintf("Batch read failed for %d of %d deals", n, len(ids)),
			Body:      raw,
		}
	}
	return raw, nil
}

// DealPipelines lists the account's deal pipelines.
func (c *Client) DealPipelines(ctx context.Context) ([]domain.Pipeline, error) {
	raw, err := c.do(ctx, "deal_pipelines", http.MethodGet, "/crm/v3/pipelines/deals", nil, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Results []domain.Pipeline `json:"results"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode pipelines: %w", err)
	}
	return resp.Results, nil
}

// do performs one bounded upstream call and returns the raw response body.
// Non-2xx responses become *Error.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(service, op, 0, started)
		c.log.Warn("hubspot call failed", zap.String("operation", op), zap.Error(err))
		return nil, fmt.Errorf("hubspot %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	metrics.ObserveUpstream(service, op, resp.StatusCode, started)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("hubspot returned error",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data),
		)
		return nil, newError(op, resp.StatusCode, data)
	}
	return data, nil
}
