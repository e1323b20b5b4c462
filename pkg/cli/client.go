package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/rpc"
)

// KBaseClient talks to a running kbase server.
type KBaseClient interface {
	Save(ctx context.Context, batch entity.Batch) (types.StatusResponse, error)
	Delete(ctx context.Context, batch entity.Batch) (types.StatusResponse, error)
	Dump(ctx context.Context, path string) (types.StatusResponse, error)
	State(ctx context.Context) (entity.State, error)
	Close() error
}

// Transports accepted by --via.
const (
	ViaHTTP = "http"
	ViaGRPC = "grpc"
)

// newClient returns a client for the transport named by via.
func newClient(via string) (KBaseClient, error) {
	switch strings.ToLower(via) {
	case "", ViaHTTP:
		return NewHTTPClient(adminURL), nil
	case ViaGRPC:
		c, err := rpc.NewClient(grpcAddr)
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", grpcAddr, err)
		}
		return grpcClient{c}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want http or grpc)", via)
	}
}

// HTTPClient calls the HTTP API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the API at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Save upserts batch.
func (c *HTTPClient) Save(ctx context.Context, batch entity.Batch) (types.StatusResponse, error) {
	return c.postStatus(ctx, "/save", batch)
}

// Delete deletes the records named in batch.
func (c *HTTPClient) Delete(ctx context.Context, batch entity.Batch) (types.StatusResponse, error) {
	return c.postStatus(ctx, "/delete", batch)
}

// Dump asks the server to write its state to path.
func (c *HTTPClient) Dump(ctx context.Context, path string) (types.StatusResponse, error) {
	return c.postStatus(ctx, "/dump", types.DumpRequest{Path: path})
}

// State fetches the current state.
func (c *HTTPClient) State(ctx context.Context) (entity.State, error) {
	var state entity.State
	resp, err := c.do(ctx, http.MethodGet, "/state", nil)
	if err != nil {
		return state, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return state, parseErrorBody(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return state, fmt.Errorf("failed to parse response: %w", err)
	}
	return state, nil
}

// Health checks that the server answers.
func (c *HTTPClient) Health(ctx context.Context) (types.HealthResponse, error) {
	var health types.HealthResponse
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return health, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return health, parseErrorBody(resp)
	}
	err = json.NewDecoder(resp.Body).Decode(&health)
	return health, err
}

// Close implements KBaseClient.
func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServerNotRunning, err)
	}
	return resp, nil
}

// postStatus posts body and decodes a StatusResponse. Non-2xx answers that
// carry a status are returned as responses, not errors.
func (c *HTTPClient) postStatus(ctx context.Context, path string, body any) (types.StatusResponse, error) {
	var out types.StatusResponse
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, &out); err == nil && out.Status != "" {
		return out, nil
	}

	var errResp types.ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Message != "" {
		return out, fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Message)
	}
	return out, fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
}

func parseErrorBody(resp *http.Response) error {
	var errResp types.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Message)
	}
	return fmt.Errorf("server error (%d)", resp.StatusCode)
}

// grpcClient adapts rpc.Client to KBaseClient.
type grpcClient struct {
	*rpc.Client
}

func (c grpcClient) State(ctx context.Context) (entity.State, error) {
	return c.GetState(ctx)
}
