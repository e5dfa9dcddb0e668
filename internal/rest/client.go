package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// APIError is a request the robot answered with a Failed envelope.
type APIError struct {
	Endpoint string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("misty api %s: %s", e.Endpoint, e.Message)
}

// envelope is the response wrapper every /api endpoint uses.
type envelope struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Err    json.RawMessage `json:"error"`
}

// Client issues stateless JSON requests against http://<ip>/api/.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a REST client for the robot at ip. A nil logger is
// replaced with a no-op one.
func NewClient(ip string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: "http://" + ip + "/api/",
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// SetTimeout replaces the per-request timeout (10s by default).
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

// Get performs a GET against the endpoint and returns the raw result field.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		if strings.Contains(target, "?") {
			target += "&" + query.Encode()
		} else {
			target += "?" + query.Encode()
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, endpoint)
}

// GetJSON performs a GET and decodes the result field into out.
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	result, err := c.Get(ctx, endpoint, query)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", endpoint, err)
	}
	return nil
}

// Post sends params as a JSON body. A nil params posts an empty object.
func (c *Client) Post(ctx context.Context, endpoint string, params any) (json.RawMessage, error) {
	req, err := c.jsonRequest(ctx, http.MethodPost, endpoint, params)
	if err != nil {
		return nil, err
	}
	return c.do(req, endpoint)
}

// Delete sends a DELETE with an optional JSON body.
func (c *Client) Delete(ctx context.Context, endpoint string, params any) error {
	req, err := c.jsonRequest(ctx, http.MethodDelete, endpoint, params)
	if err != nil {
		return err
	}
	_, err = c.do(req, endpoint)
	return err
}

// PostMultipart uploads a file plus form fields, as the skill upload
// endpoint expects.
func (c *Client) PostMultipart(ctx context.Context, endpoint string, fields map[string]string, fileField, fileName string, file []byte) (json.RawMessage, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, endpoint)
}

func (c *Client) jsonRequest(ctx context.Context, method string, endpoint string, params any) (*http.Request, error) {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, endpoint string) (json.RawMessage, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode %s response (http %d): %w", endpoint, resp.StatusCode, err)
	}

	c.logger.Debug("misty api call",
		zap.String("method", req.Method),
		zap.String("endpoint", endpoint),
		zap.String("status", env.Status),
		zap.Int("http_status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if !strings.EqualFold(env.Status, "Success") {
		return nil, &APIError{Endpoint: endpoint, Message: errorText(env.Err, data)}
	}
	return env.Result, nil
}

func errorText(raw json.RawMessage, full []byte) string {
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil && msg != "" {
		return msg
	}
	if len(raw) > 0 && string(raw) != "null" {
		return string(raw)
	}
	return string(full)
}
