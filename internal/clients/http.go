package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

const defaultTimeout = 60 * time.Second

// transport is the HTTP plumbing shared by all adapters.
type transport struct {
	provider string
	client   *http.Client
	timeout  time.Duration
}

func newTransport(desc models.ProviderDescriptor) transport {
	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return transport{
		provider: desc.Name,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
	}
}

// do sends the request and returns the status code and full body. Only
// transport failures are returned as errors; status handling is left to the
// adapter so it can decode the vendor's error envelope.
func (t transport) do(ctx context.Context, method, url string, headers map[string]string, payload interface{}) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, newTransportError(t.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, newTransportError(t.provider, err)
	}
	return resp.StatusCode, body, nil
}

// healthGet performs a cheap GET used by HealthCheck implementations.
func (t transport) healthGet(ctx context.Context, url string, headers map[string]string) error {
	status, body, err := t.do(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return NewProviderError(t.provider, status, snippet(body, 300))
	}
	return nil
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

// snippet truncates vendor error bodies to max runes.
func snippet(b []byte, max int) string {
	runes := []rune(strings.TrimSpace(string(b)))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "..."
}

func modelFor(desc models.ProviderDescriptor, hint string) string {
	if hint != "" && (len(desc.Models) == 0 || desc.SupportsModel(hint)) {
		return hint
	}
	if hint != "" {
		logger.Debugf("model hint %q not supported by %s, using %s", hint, desc.Name, desc.DefaultModel)
	}
	return desc.DefaultModel
}
