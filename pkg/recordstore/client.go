package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MaxBatchSize is the most records a single create or delete call may carry.
const MaxBatchSize = 10

var (
	// ErrNotFound is returned when the store answers 404 for a record or table.
	ErrNotFound = errors.New("recordstore: record not found")
	// ErrBatchTooLarge is returned before any network call when a write exceeds MaxBatchSize.
	ErrBatchTooLarge = fmt.Errorf("recordstore: batch exceeds %d records", MaxBatchSize)
)

// APIError describes a non-2xx answer from the record store.
type APIError struct {
	Operation  string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Type != "" {
		return fmt.Sprintf("recordstore %s: %d %s: %s", e.Operation, e.StatusCode, e.Type, msg)
	}
	return fmt.Sprintf("recordstore %s: %d: %s", e.Operation, e.StatusCode, msg)
}

// Observer receives timing for every call issued by the client.
type Observer interface {
	ObserveRecordStoreCall(operation string, status int, duration time.Duration)
}

// Record is a single row of a record-store table.
type Record struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields"`
}

// Page is one slice of a paginated list; Offset is empty on the last page.
type Page struct {
	Records []Record
	Offset  string
}

// ListOptions narrows a list call.
type ListOptions struct {
	Filter   string
	Fields   []string
	PageSize int
	Offset   string
}

// Client talks to an Airtable-style REST record store.
type Client struct {
	baseURL  string
	baseID   string
	apiKey   string
	http     *http.Client
	observer Observer
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the transport used for outbound calls.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.http = c
		}
	}
}

// WithObserver attaches a latency observer.
func WithObserver(o Observer) Option {
	return func(client *Client) {
		client.observer = o
	}
}

// New constructs a record store client.
func New(baseURL, baseID, apiKey string, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		baseID:  baseID,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Get loads one record by id.
func (c *Client) Get(ctx context.Context, table, id string) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	var record Record
	if err := c.do(ctx, "get", http.MethodGet, c.tableURL(table, id, nil), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns a single page of records.
func (c *Client) List(ctx context.Context, table string, opts ListOptions) (*Page, error) {
	query := url.Values{}
	if opts.Filter != "" {
		query.Set("filterByFormula", opts.Filter)
	}
	for _, field := range opts.Fields {
		query.Add("fields[]", field)
	}
	if opts.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Offset != "" {
		query.Set("offset", opts.Offset)
	}

	var body struct {
		Records []Record `json:"records"`
		Offset  string   `json:"offset"`
	}
	if err := c.do(ctx, "list", http.MethodGet, c.tableURL(table, "", query), nil, &body); err != nil {
		return nil, err
	}
	return &Page{Records: body.Records, Offset: body.Offset}, nil
}

// ListAll follows continuation tokens until the last page.
func (c *Client) ListAll(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	var all []Record
	for {
		page, err := c.List(ctx, table, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Records...)
		if page.Offset == "" {
			return all, nil
		}
		opts.Offset = page.Offset
	}
}

// Create inserts up to MaxBatchSize records and returns them with their assigned ids.
func (c *Client) Create(ctx context.Context, table string, rows []Fields) ([]Record, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	type createRow struct {
		Fields Fields `json:"fields"`
	}
	payload := struct {
		Records  []createRow `json:"records"`
		Typecast bool        `json:"typecast"`
	}{Typecast: true}
	for _, row := range rows {
		payload.Records = append(payload.Records, createRow{Fields: row})
	}

	var body struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, "create", http.MethodPost, c.tableURL(table, "", nil), payload, &body); err != nil {
		return nil, err
	}
	if len(body.Records) != len(rows) {
		return body.Records, fmt.Errorf("recordstore create: expected %d records, got %d", len(rows), len(body.Records))
	}
	return body.Records, nil
}

// Update patches the given fields; a nil value clears the field.
func (c *Client) Update(ctx context.Context, table, id string, fields Fields) (*Record, error) {
	payload := struct {
		Fields   Fields `json:"fields"`
		Typecast bool   `json:"typecast"`
	}{Fields: fields, Typecast: true}

	var record Record
	if err := c.do(ctx, "update", http.MethodPatch, c.tableURL(table, id, nil), payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete removes up to MaxBatchSize records and returns the ids the store confirmed.
func (c *Client) Delete(ctx context.Context, table string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	query := url.Values{}
	for _, id := range ids {
		query.Add("records[]", id)
	}

	var body struct {
		Records []struct {
			ID      string `json:"id"`
			Deleted bool   `json:"deleted"`
		} `json:"records"`
	}
	if err := c.do(ctx, "delete", http.MethodDelete, c.tableURL(table, "", query), nil, &body); err != nil {
		return nil, err
	}
	deleted := make([]string, 0, len(body.Records))
	for _, rec := range body.Records {
		if rec.Deleted {
			deleted = append(deleted, rec.ID)
		}
	}
	return deleted, nil
}

func (c *Client) tableURL(table, id string, query url.Values) string {
	u := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.baseID), url.PathEscape(table))
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, operation, method, target string, payload, dest interface{}) error {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("recordstore %s: marshal payload: %w", operation, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("recordstore %s: build request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.observe(operation, 0, duration)
		return fmt.Errorf("recordstore %s: %w", operation, err)
	}
	defer resp.Body.Close()
	c.observe(operation, resp.StatusCode, duration)

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(operation, resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("recordstore %s: decode response: %w", operation, err)
	}
	return nil
}

func (c *Client) observe(operation string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRecordStoreCall(operation, status, duration)
	}
}

func decodeAPIError(operation string, resp *http.Response) error {
	apiErr := &APIError{Operation: operation, StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Error) == 0 {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}

	var detail struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		apiErr.Type = detail.Type
		apiErr.Message = detail.Message
		return apiErr
	}
	var code string
	if err := json.Unmarshal(envelope.Error, &code); err == nil {
		apiErr.Type = code
	}
	return apiErr
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = MaxBatchSize
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
