package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/layersync/pkg/errors"
)

// envelope is the error body the portal returns, often with HTTP 200:
//
//	{"error":{"code":498,"message":"Invalid token.","details":[]}}
type envelope struct {
	Error *struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

type envelopeError struct {
	Code    int
	Message string
	Details []string
}

func parseEnvelope(body []byte) (envelopeError, bool) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return envelopeError{}, false
	}
	return envelopeError{Code: env.Error.Code, Message: env.Error.Message, Details: env.Error.Details}, true
}

// DecodeResponse decodes a JSON response into target. A portal error
// envelope is returned as *errors.APIError even when the status is 200.
func DecodeResponse(service string, resp *http.Response, target any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if env, ok := parseEnvelope(body); ok {
		endpoint := ""
		if resp.Request != nil {
			endpoint = redact(resp.Request)
		}
		return &errors.APIError{
			Service:  service,
			Code:     env.Code,
			Message:  env.Message,
			Details:  env.Details,
			Endpoint: endpoint,
		}
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// NewGetRequest builds a GET request with f=json and the given parameters.
func NewGetRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.NewValidationError("url", endpoint, err.Error())
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("f", "json")
	u.RawQuery = q.Encode()
	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

// NewFormRequest builds a form-encoded POST request with f=json.
func NewFormRequest(ctx context.Context, endpoint string, form url.Values) (*http.Request, error) {
	values := url.Values{}
	for k, vs := range form {
		values[k] = append([]string(nil), vs...)
	}
	values.Set("f", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// NewMultipartRequest builds a multipart POST carrying fields, f=json, and
// the file at path under fileField. The file keeps its base name, which the
// portal uses as the uploaded item's file name.
func NewMultipartRequest(ctx context.Context, endpoint string, fields url.Values, fileField, path string) (*http.Request, error) {
	f, err := os.Open(path) //nolint:gosec // path is the merged output file
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range fields {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				return nil, err
			}
		}
	}
	if err := mw.WriteField("f", "json"); err != nil {
		return nil, err
	}
	part, err := mw.CreateFormFile(fileField, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}
