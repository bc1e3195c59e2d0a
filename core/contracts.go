package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// CredentialStore owns the single bearer credential for the process. Reads
// never fail: storage problems degrade to absent and are reported through the
// store's logger instead of the call site.
type CredentialStore interface {
	Get(ctx context.Context) (string, bool)
	Set(ctx context.Context, token string)
	Clear(ctx context.Context)
}

// APIRequest describes one normalized call against the storefront backend.
// Params values are stringified by the transport: primitives verbatim, slices
// repeat the key, everything else is JSON-encoded.
type APIRequest struct {
	Method  string
	Path    string
	Params  map[string]any
	Body    any
	Headers map[string]string
	Timeout time.Duration
}

// UploadRequest is the multipart variant of APIRequest. The transport lets
// the multipart writer pick the content type so the boundary survives.
type UploadRequest struct {
	Path      string
	Params    map[string]any
	Fields    map[string]string
	FileField string
	FileName  string
	File      io.Reader
	Headers   map[string]string
}

type APIResponse struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	JSON       bool
}

// Decode unmarshals a JSON response body. Non-JSON bodies must be read via
// Text.
func (r APIResponse) Decode(v any) error {
	if !r.JSON {
		return fmt.Errorf("core: response content type is not json")
	}
	if len(r.Body) == 0 {
		return fmt.Errorf("core: response body is empty")
	}
	return json.Unmarshal(r.Body, v)
}

func (r APIResponse) Text() string {
	return string(r.Body)
}

type APIClient interface {
	Request(ctx context.Context, req APIRequest) (APIResponse, error)
	Upload(ctx context.Context, req UploadRequest) (APIResponse, error)
}

// SessionObserver receives a snapshot after every observable state change.
// Observers run synchronously on the mutating goroutine and must not block.
type SessionObserver interface {
	SessionChanged(snapshot Snapshot)
}

type SessionObserverFunc func(Snapshot)

func (f SessionObserverFunc) SessionChanged(snapshot Snapshot) {
	if f != nil {
		f(snapshot)
	}
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
