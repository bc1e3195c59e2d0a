package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/vitrinehq/go-storefront/core"
)

// Upload performs a multipart form request, typically for file uploads. The
// multipart writer supplies the content type so the boundary is preserved;
// the bearer credential is attached like any other request.
func (c *Client) Upload(ctx context.Context, req core.UploadRequest) (core.APIResponse, error) {
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
	if req.File == nil && len(req.Fields) == 0 {
		return core.APIResponse{}, transportError(
			"transport: upload requires a file or form fields",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"path": req.Path},
		)
	}

	target, err := c.resolveURL(req.Path, req.Params)
	if err != nil {
		return core.APIResponse{}, err
	}

	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	for key, value := range req.Fields {
		if strings.TrimSpace(key) == "" {
			continue
		}
		if writeErr := writer.WriteField(key, value); writeErr != nil {
			return core.APIResponse{}, wrapMultipartError(writeErr, req.Path)
		}
	}
	if req.File != nil {
		fieldName := strings.TrimSpace(req.FileField)
		if fieldName == "" {
			fieldName = "file"
		}
		fileName := strings.TrimSpace(req.FileName)
		if fileName == "" {
			fileName = fieldName
		}
		part, partErr := writer.CreateFormFile(fieldName, fileName)
		if partErr != nil {
			return core.APIResponse{}, wrapMultipartError(partErr, req.Path)
		}
		if _, copyErr := io.Copy(part, req.File); copyErr != nil {
			return core.APIResponse{}, wrapMultipartError(copyErr, req.Path)
		}
	}
	if closeErr := writer.Close(); closeErr != nil {
		return core.APIResponse{}, wrapMultipartError(closeErr, req.Path)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buffer)
	if err != nil {
		return core.APIResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create upload request",
			http.StatusBadRequest,
			map[string]any{"url": target},
		)
	}
	c.applyHeaders(ctx, httpReq, req.Headers)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(httpReq, http.MethodPost, target)
}

func wrapMultipartError(err error, path string) error {
	return transportWrapError(
		err,
		goerrors.CategoryInternal,
		fmt.Sprintf("transport: build multipart body for %s", strings.TrimSpace(path)),
		http.StatusInternalServerError,
		map[string]any{"path": path},
	)
}
