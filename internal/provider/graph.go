package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
)

// MetricsGraphDescriptor is a supplemental provider not present in
// original_source: it queries a Prometheus-compatible HTTP API's instant
// query endpoint, giving night-watch a way to monitor the metrics
// exported by its own /metrics endpoint (or any other Prometheus
// target) instead of only probing endpoints directly.
var MetricsGraphDescriptor = Descriptor{
	Mandatory: []string{"url", "query"},
	Optional:  []string{"timeout"},
}

// MetricsGraphChecker evaluates a PromQL instant query and returns the
// scalar value of the first result series.
type MetricsGraphChecker struct {
	baseURL string
	query   string
	client  *http.Client
}

func NewMetricsGraphChecker(cfg map[string]any) (Checker, error) {
	base, _ := cfg["url"].(string)
	query, _ := cfg["query"].(string)
	if base == "" || query == "" {
		return nil, fmt.Errorf("url and query must both be non-empty strings")
	}

	timeout := 10 * time.Second
	if v, ok := toInt(cfg["timeout"]); ok {
		timeout = time.Duration(v) * time.Second
	}

	return &MetricsGraphChecker{baseURL: base, query: query, client: &http.Client{Timeout: timeout}}, nil
}

func (m *MetricsGraphChecker) Type() string { return "MetricsGraph" }

type promResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Value [2]any `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

func (m *MetricsGraphChecker) Process(ctx context.Context) (any, error) {
	endpoint := fmt.Sprintf("%s/api/v1/query?%s", m.baseURL, url.Values{"query": {m.query}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindProviderRuntimeError, err, "building query request")
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindProviderRuntimeError, err, "querying %s", m.baseURL)
	}
	defer resp.Body.Close()

	var parsed promResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindProviderRuntimeError, err, "decoding query response")
	}
	if parsed.Status != "success" {
		return nil, nwerrors.New(nwerrors.KindProviderRuntimeError, "query %q did not succeed", m.query)
	}
	if len(parsed.Data.Result) == 0 {
		return nil, nwerrors.New(nwerrors.KindProviderRuntimeError, "query %q returned no series", m.query)
	}

	sample, ok := parsed.Data.Result[0].Value[1].(string)
	if !ok {
		return nil, nwerrors.New(nwerrors.KindProviderRuntimeError, "unexpected sample value shape in query response")
	}
	v, err := strconv.ParseFloat(sample, 64)
	if err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindProviderRuntimeError, err, "parsing sample value %q", sample)
	}
	return v, nil
}
