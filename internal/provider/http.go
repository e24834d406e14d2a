package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
)

// HTTPDescriptor lists the HttpRequest provider's parameters, grounded
// on original_source's HttpRequest.py.
var HTTPDescriptor = Descriptor{
	Mandatory: []string{"url"},
	Optional: []string{
		"requested_data", "method", "body", "headers", "allow_redirects",
		"user", "password", "authentication_method",
	},
}

var httpAllowedData = map[string]bool{"status": true, "content": true}
var httpAllowedMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodDelete: true, http.MethodHead: true, http.MethodOptions: true,
}

// HTTPChecker probes an HTTP(S) endpoint and returns either its status
// code or its response body, according to requested_data.
type HTTPChecker struct {
	url            string
	method         string
	body           string
	headers        map[string]string
	allowRedirects bool
	user, password string
	requestedData  string
	client         *http.Client
}

// NewHTTPChecker builds an HTTPChecker from a merged provider
// configuration.
func NewHTTPChecker(cfg map[string]any) (Checker, error) {
	url, _ := cfg["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("url must be a non-empty string")
	}

	method, _ := cfg["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)
	if !httpAllowedMethods[method] {
		return nil, fmt.Errorf("method %q is not supported", method)
	}

	requested, _ := cfg["requested_data"].(string)
	if requested == "" {
		requested = "status"
	}
	if !httpAllowedData[requested] {
		return nil, fmt.Errorf("requested_data %q is not supported", requested)
	}

	headers := map[string]string{}
	if raw, ok := cfg["headers"].(map[string]any); ok {
		for k, v := range raw {
			headers[k] = fmt.Sprintf("%v", v)
		}
	}

	body, _ := cfg["body"].(string)
	user, _ := cfg["user"].(string)
	password, _ := cfg["password"].(string)

	allowRedirects := true
	if v, ok := cfg["allow_redirects"].(bool); ok {
		allowRedirects = v
	}

	client := &http.Client{Timeout: 10 * time.Second}
	if !allowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &HTTPChecker{
		url: url, method: method, body: body, headers: headers,
		allowRedirects: allowRedirects, user: user, password: password,
		requestedData: requested, client: client,
	}, nil
}

func (h *HTTPChecker) Type() string { return "HttpRequest" }

func (h *HTTPChecker) Process(ctx context.Context) (any, error) {
	var bodyReader io.Reader
	if h.body != "" {
		bodyReader = bytes.NewBufferString(h.body)
	}
	req, err := http.NewRequestWithContext(ctx, h.method, h.url, bodyReader)
	if err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindProviderRuntimeError, err, "building request for %s", h.url)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	if h.user != "" && h.password != "" {
		req.SetBasicAuth(h.user, h.password)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindProviderRuntimeError, err, "performing %s %s", h.method, h.url)
	}
	defer resp.Body.Close()

	if h.requestedData == "status" {
		return resp.StatusCode, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindProviderRuntimeError, err, "reading response body from %s", h.url)
	}
	var parsed any
	if json.Unmarshal(data, &parsed) == nil {
		return parsed, nil
	}
	return string(data), nil
}
