package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/vitrinehq/go-storefront/core"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

const requestIDHeader = "X-Request-ID"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource yields the current bearer credential. The credential store
// satisfies this; the client only reads tokens. Setting and clearing the
// credential are store operations (store.TokenStore.Set/Clear), so callers
// that hold the store mutate it directly rather than through the client.
type TokenSource interface {
	Get(ctx context.Context) (string, bool)
}

// Client is the single choke point for storefront network I/O. It joins the
// base endpoint with request paths, attaches the bearer credential, encodes
// bodies and query parameters, and normalizes every response into
// core.APIResponse or a status error. The credential itself is owned by the
// TokenSource; the client consults it per request and never writes to it.
type Client struct {
	base                 *url.URL
	client               HTTPDoer
	tokens               TokenSource
	logger               core.Logger
	defaultHeaders       map[string]string
	maxResponseBodyBytes int64
}

type ClientOption func(*Client)

func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

func WithTokenSource(tokens TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = tokens
	}
}

func WithLogger(logger core.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.defaultHeaders[key] = value
		}
	}
}

func WithMaxResponseBodyBytes(limit int64) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.maxResponseBodyBytes = limit
		}
	}
}

func New(baseURL string, options ...ClientOption) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = core.DefaultBaseURL
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid base url",
			http.StatusBadRequest,
			map[string]any{"base_url": trimmed},
		)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, transportError(
			fmt.Sprintf("transport: base url must be absolute, got %q", trimmed),
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"base_url": trimmed},
		)
	}

	client := &Client{
		base:                 parsed,
		client:               &http.Client{Timeout: defaultClientTimeout},
		logger:               glog.Ensure(nil),
		defaultHeaders:       map[string]string{},
		maxResponseBodyBytes: defaultResponseBodyLimit,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(client)
	}
	return client, nil
}

func (c *Client) BaseURL() string {
	if c == nil || c.base == nil {
		return ""
	}
	return c.base.String()
}

// Request performs one normalized call. Non-2xx statuses return the response
// alongside a status error carrying code, status text, and decoded body;
// network-level failures return a transport error with no status code.
func (c *Client) Request(ctx context.Context, req core.APIRequest) (core.APIResponse, error) {
	if c == nil || c.client == nil {
		return core.APIResponse{}, transportError(
			"transport: client requires an http doer",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.resolveURL(req.Path, req.Params)
	if err != nil {
		return core.APIResponse{}, err
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return core.APIResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: encode request body",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": target},
		)
	}

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target, bytes.NewReader(body))
	if err != nil {
		return core.APIResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": target},
		)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	c.applyHeaders(ctx, httpReq, req.Headers)

	return c.do(httpReq, method, target)
}

func (c *Client) resolveURL(requestPath string, params map[string]any) (string, error) {
	joined := *c.base
	joined.Path = joinPath(c.base.Path, requestPath)

	query := joined.Query()
	if err := encodeParams(query, params); err != nil {
		return "", transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: encode query params",
			http.StatusBadRequest,
			map[string]any{"path": requestPath},
		)
	}
	joined.RawQuery = query.Encode()
	return joined.String(), nil
}

func (c *Client) applyHeaders(ctx context.Context, httpReq *http.Request, headers map[string]string) {
	for key, value := range c.defaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if httpReq.Header.Get("Authorization") == "" && c.tokens != nil {
		if token, ok := c.tokens.Get(ctx); ok && strings.TrimSpace(token) != "" {
			httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
		}
	}
	if httpReq.Header.Get(requestIDHeader) == "" {
		httpReq.Header.Set(requestIDHeader, uuid.NewString())
	}
}

func (c *Client) do(httpReq *http.Request, method string, target string) (core.APIResponse, error) {
	startedAt := time.Now().UTC()
	httpRes, err := c.client.Do(httpReq)
	if err != nil {
		return core.APIResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{"method": method, "url": target},
		)
	}
	defer httpRes.Body.Close()

	limit := c.maxResponseBodyBytes
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, limit+1))
	if err != nil {
		return core.APIResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"method": method, "url": target, "status_code": httpRes.StatusCode},
		)
	}
	if int64(len(body)) > limit {
		return core.APIResponse{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", limit),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"method": method, "url": target, "status_code": httpRes.StatusCode},
		)
	}

	response := core.APIResponse{
		StatusCode: httpRes.StatusCode,
		Status:     httpRes.Status,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
		JSON:       isJSONContentType(httpRes.Header.Get("Content-Type")),
	}

	if c.logger != nil {
		c.logger.Info("request completed",
			"method", method,
			"url", target,
			"status_code", httpRes.StatusCode,
			"duration_ms", time.Since(startedAt).Milliseconds(),
		)
	}

	if httpRes.StatusCode < http.StatusOK || httpRes.StatusCode >= http.StatusMultipleChoices {
		return response, statusError(response, method, target)
	}
	return response, nil
}

func joinPath(basePath, requestPath string) string {
	base := strings.TrimRight(basePath, "/")
	request := strings.TrimLeft(strings.TrimSpace(requestPath), "/")
	if request == "" {
		return base
	}
	return base + "/" + request
}

// encodeParams stringifies query parameters: primitives verbatim, slices
// repeat the key, everything else is JSON-encoded.
func encodeParams(values url.Values, params map[string]any) error {
	for key, value := range params {
		key = strings.TrimSpace(key)
		if key == "" || value == nil {
			continue
		}
		kind := reflect.ValueOf(value).Kind()
		if kind == reflect.Slice || kind == reflect.Array {
			items := reflect.ValueOf(value)
			for i := 0; i < items.Len(); i++ {
				encoded, err := encodeScalar(items.Index(i).Interface())
				if err != nil {
					return err
				}
				values.Add(key, encoded)
			}
			continue
		}
		encoded, err := encodeScalar(value)
		if err != nil {
			return err
		}
		values.Set(key, encoded)
	}
	return nil
}

func encodeScalar(value any) (string, error) {
	switch typed := value.(type) {
	case string:
		return typed, nil
	case bool:
		return strconv.FormatBool(typed), nil
	case int:
		return strconv.Itoa(typed), nil
	case int64:
		return strconv.FormatInt(typed, 10), nil
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), nil
	case fmt.Stringer:
		return typed.String(), nil
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

func encodeBody(body any) ([]byte, string, error) {
	switch typed := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(typed), "", nil
	case []byte:
		return typed, "", nil
	case json.RawMessage:
		return typed, "application/json", nil
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return nil, "", err
		}
		return encoded, "application/json", nil
	}
}

func isJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

var _ core.APIClient = (*Client)(nil)
