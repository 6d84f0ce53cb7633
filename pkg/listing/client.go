package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/taxa/pkg/logging"
	"github.com/vanderheijden86/taxa/pkg/model"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

// Client talks to a listing service over HTTP.
type Client struct {
	base *url.URL
	http *http.Client
	log  logrus.FieldLogger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithClientLogger logs requests at debug level.
func WithClientLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) { c.log = l }
}

// NewClient returns a client rooted at baseURL. Paths such as
// /collections are resolved below any path baseURL already has.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ItemsURL renders the request URL for q.
func (c *Client) ItemsURL(q viewstate.QueryState) string {
	v := url.Values{}
	if q.FreeText != "" {
		v.Set("q", q.FreeText)
	}
	if q.CollectionID != nil {
		v.Set("collection_id", strconv.FormatInt(*q.CollectionID, 10))
	}
	v.Set("limit", strconv.Itoa(q.PageSize))
	v.Set("offset", strconv.Itoa(q.Offset()))
	if q.Sort != nil {
		v.Set("sort", q.Sort.Field)
		v.Set("order", q.Sort.Direction.String())
	}
	return c.endpoint("items") + "?" + v.Encode()
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.base
	for _, p := range parts {
		u.Path += "/" + url.PathEscape(p)
	}
	return u.String()
}

// Collections fetches the taxonomy payload.
func (c *Client) Collections(ctx context.Context) ([]model.CollectionNode, error) {
	var out []model.CollectionNode
	if err := c.getJSON(ctx, "collections", c.endpoint("collections"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Items fetches one listing page.
func (c *Client) Items(ctx context.Context, q viewstate.QueryState) (model.ResultPage, error) {
	var page model.ResultPage
	if err := c.getJSON(ctx, "items", c.ItemsURL(q), &page); err != nil {
		return model.ResultPage{}, err
	}
	if page.Items == nil {
		page.Items = []model.RecordSummary{}
	}
	return page, nil
}

// Item fetches a single record. A 404 maps to ErrNotFound.
func (c *Client) Item(ctx context.Context, id string) (model.RecordSummary, error) {
	var rec model.RecordSummary
	err := c.getJSON(ctx, "item", c.endpoint("items", id), &rec)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return rec, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return rec, err
}

func (c *Client) getJSON(ctx context.Context, op, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return TransportError{Op: op, Cause: err, Time: time.Now()}
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"op":      op,
		"url":     rawURL,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start),
	}).Debug("listing request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, URL: rawURL, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return TransportError{Op: op, Cause: fmt.Errorf("decoding response: %w", err), Time: time.Now()}
	}
	return nil
}
