package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/records"
)

// Sentinel errors returned (wrapped) by Client.
var (
	ErrHTTPStatus  = errors.New(config.ErrHTTPStatus)
	ErrNotJSON     = errors.New(config.ErrNotJSON)
	ErrBadResponse = errors.New(config.ErrBadResponse)
	ErrRejected    = errors.New(config.ErrRejected)
)

// PostResult describes an accepted submission.
type PostResult struct {
	// NonJSON is set when the endpoint accepted the record but did not answer with a JSON object.
	NonJSON bool
}

// RecordPoster submits a record to the remote store.
type RecordPoster interface {
	PostRecord(ctx context.Context, data records.Record) (PostResult, error)
}

// Client talks to the remote record endpoint.
//
//	GET  ?phone=<p>[&only_water=1]  -> {"ok":true,"rows":[...]}
//	POST {"type":"customer_service","timestamp":<unix>,"data":{...}}
type Client struct {
	Endpoint string
	HTTP     *http.Client
	Clock    Clock
}

// NewClient creates a Client with the configured timeout.
func NewClient(endpoint string) *Client {
	return &Client{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: config.HTTPTimeout},
		Clock:    RealClock{},
	}
}

// GetRecords queries the rows of one customer, optionally asking the endpoint
// to keep only water-equipment rows.
func (c *Client) GetRecords(ctx context.Context, phone string, onlyWater bool) ([]any, error) {
	u, err := c.endpointURL()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set(config.QueryPhone, phone)
	if onlyWater {
		q.Set(config.QueryOnlyWater, config.QueryOnlyWaterEnable)
	}
	u.RawQuery = q.Encode()
	return c.sendGet(ctx, u)
}

// FetchRaw returns every row stored for phone.
func (c *Client) FetchRaw(ctx context.Context, phone string) ([]any, error) {
	return c.GetRecords(ctx, phone, false)
}

// Rows implements RecordSource.
func (c *Client) Rows(ctx context.Context, phone string) ([]any, error) {
	return c.FetchRaw(ctx, phone)
}

// PostRecord submits data wrapped in the store's envelope.
func (c *Client) PostRecord(ctx context.Context, data records.Record) (PostResult, error) {
	u, err := c.endpointURL()
	if err != nil {
		return PostResult{}, err
	}

	clock := c.Clock
	if clock == nil {
		clock = RealClock{}
	}
	body, err := json.Marshal(map[string]any{
		config.PayloadType:      config.RecordType,
		config.PayloadTimestamp: clock.Now().Unix(),
		config.PayloadData:      data,
	})
	if err != nil {
		return PostResult{}, fmt.Errorf("%s: %w", config.ErrEncodePayload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return PostResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(config.HeaderContentType, config.MimeJSON)

	reply, err := c.do(req)
	if err != nil {
		return PostResult{}, err
	}

	log := slog.With(config.LogKeyComponent, config.CompClient, config.LogKeyOp, http.MethodPost)

	if !reply.isJSON() {
		log.Info(config.MsgNonJSONPost)
		return PostResult{NonJSON: true}, nil
	}
	obj, ok := reply.object()
	if !ok {
		log.Info(config.MsgNonJSONPost)
		return PostResult{NonJSON: true}, nil
	}
	if err := rejection(obj); err != nil {
		return PostResult{}, err
	}
	log.Info(config.MsgPosted)
	return PostResult{}, nil
}

func (c *Client) sendGet(ctx context.Context, u *url.URL) ([]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	reply, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if !reply.isJSON() {
		return nil, fmt.Errorf("%w\n%s", ErrNotJSON, reply.preview())
	}
	obj, ok := reply.object()
	if !ok {
		return nil, ErrBadResponse
	}
	if err := rejection(obj); err != nil {
		return nil, err
	}

	rows, _ := obj[config.ResponseRows].([]any)
	return rows, nil
}

// endpointURL validates the configured endpoint (http/https only).
func (c *Client) endpointURL() (*url.URL, error) {
	if c.Endpoint == "" {
		return nil, errors.New(config.ErrEndpointEmpty)
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}
	return u, nil
}

// reply is a fully read HTTP response.
type reply struct {
	status      int
	contentType string
	body        []byte
}

func (r reply) isJSON() bool {
	return strings.Contains(r.contentType, config.MimeJSON)
}

func (r reply) object() (map[string]any, bool) {
	var v any
	if err := json.Unmarshal(r.body, &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

func (r reply) preview() string {
	b := r.body
	if len(b) > config.BodyPreviewLen {
		b = b[:config.BodyPreviewLen]
	}
	return string(b)
}

// do sends req and reads at most MaxHTTPResponseSize bytes of the body.
// The query string is stripped from logs since it carries the customer's phone.
func (c *Client) do(req *http.Request) (reply, error) {
	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompClient),
		slog.String(config.LogKeyURL, safeURL),
		slog.String(config.LogKeyOp, req.Method),
	)
	log.Debug("Sending request")

	req.Header.Set(config.HeaderUserAgent, config.UserAgent)

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return reply{}, fmt.Errorf("%s: %w", config.ErrConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxHTTPResponseSize))
	if err != nil {
		return reply{}, fmt.Errorf("%s: %w", config.ErrConnection, err)
	}

	r := reply{
		status:      resp.StatusCode,
		contentType: strings.ToLower(resp.Header.Get(config.HeaderContentType)),
		body:        body,
	}
	if r.status != http.StatusOK {
		log.Warn("Server returned error status", slog.Int(config.LogKeyStatus, r.status))
		return reply{}, fmt.Errorf("%w: HTTP %d\n%s", ErrHTTPStatus, r.status, r.preview())
	}
	log.Debug("Response received", slog.Int(config.LogKeySizeBytes, len(body)))
	return r, nil
}

// rejection turns {"ok":false,"error":"..."} into ErrRejected. A missing or
// non-boolean "ok" counts as success.
func rejection(obj map[string]any) error {
	ok, isBool := obj[config.ResponseOK].(bool)
	if !isBool || ok {
		return nil
	}
	msg, _ := obj[config.ResponseError].(string)
	if msg == "" {
		msg = config.ErrUnknownRemote
	}
	return fmt.Errorf("%w: %s", ErrRejected, msg)
}
