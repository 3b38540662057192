package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"hydroponics/internal/domain"
)

const DefaultTimeout = 5 * time.Second

// maxBody bounds how much of a device answer is read.
const maxBody = 64 * 1024

type endpoint struct {
	address string
	baseURL string
}

// Client talks to the irrigation controller. The address and the base URL
// derived from it are swapped together, so a request never sees one
// without the other.
type Client struct {
	httpClient *http.Client
	endpoint   atomic.Pointer[endpoint]
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewClientWithHTTP(&http.Client{Timeout: timeout})
}

func NewClientWithHTTP(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{httpClient: httpClient}
}

// BaseURL derives the endpoint for a user supplied address. Bare hosts
// ("192.168.1.20", "esp.local:8080") get an http scheme.
func BaseURL(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	return strings.TrimSuffix(address, "/")
}

// SetAddress replaces the endpoint. An empty address clears it.
func (c *Client) SetAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		c.endpoint.Store(nil)
		return ""
	}
	ep := &endpoint{address: address, baseURL: BaseURL(address)}
	c.endpoint.Store(ep)
	return ep.baseURL
}

func (c *Client) Address() string {
	if ep := c.endpoint.Load(); ep != nil {
		return ep.address
	}
	return ""
}

func (c *Client) BaseURL() string {
	if ep := c.endpoint.Load(); ep != nil {
		return ep.baseURL
	}
	return ""
}

func (c *Client) FetchData(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot

	resp, url, err := c.doRequest(ctx, http.MethodGet, "/data", nil)
	if err != nil {
		return snap, err
	}

	if err := json.Unmarshal(resp, &snap); err != nil {
		return domain.Snapshot{}, &domain.TransportError{
			Op:  http.MethodGet,
			URL: url,
			Err: fmt.Errorf("parsing data: %w", err),
		}
	}

	return snap, nil
}

func (c *Client) SendCycle(ctx context.Context, onMin, offMin int) (string, error) {
	body, err := json.Marshal(map[string]int{
		"on_min":  onMin,
		"off_min": offMin,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	resp, _, err := c.doRequest(ctx, http.MethodPost, "/set_cycle", body)
	if err != nil {
		return "", err
	}

	return string(resp), nil
}

func (c *Client) SendPump(ctx context.Context, action domain.PumpAction) error {
	var path string
	switch action {
	case domain.PumpOn:
		path = "/pump_on"
	case domain.PumpOff:
		path = "/pump_off"
	default:
		return &domain.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown pump action %q", action)}
	}

	_, _, err := c.doRequest(ctx, http.MethodPost, path, nil)
	return err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, string, error) {
	ep := c.endpoint.Load()
	if ep == nil {
		return nil, "", domain.ErrNotConfigured
	}
	url := ep.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, url, &domain.TransportError{Op: method, URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, url, &domain.TransportError{Op: method, URL: url, Err: fmt.Errorf("sending request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, url, &domain.TransportError{Op: method, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, url, &domain.TransportError{
			Op:         method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("device error: %s", strings.TrimSpace(string(respBody))),
		}
	}

	return respBody, url, nil
}
