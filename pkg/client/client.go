package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/roost-io/roost/pkg/types"
)

var (
	// ErrUnauthorized mirrors a 401 from the remote end
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRejected mirrors a 4xx other than 401
	ErrRejected = errors.New("request rejected")
)

// Client wraps the controller HTTP API for CLI usage
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a controller client
func NewClient(addr string) *Client {
	return &Client{
		baseURL: normalizeBaseURL(addr),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// RegisterNode creates a node and returns it with its initial token
func (c *Client) RegisterNode(ctx context.Context, req *types.RegisterNodeRequest) (*types.RegisterNodeResponse, error) {
	var resp types.RegisterNodeResponse
	if err := c.do(ctx, http.MethodPost, "/v1/nodes", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListNodes returns the fleet inventory
func (c *Client) ListNodes(ctx context.Context) ([]types.NodeSummary, error) {
	var nodes []types.NodeSummary
	if err := c.do(ctx, http.MethodGet, "/v1/nodes", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Status returns the derived liveness view of every node
func (c *Client) Status(ctx context.Context) ([]types.NodeStatus, error) {
	var statuses []types.NodeStatus
	if err := c.do(ctx, http.MethodGet, "/v1/nodes/status", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// RotateToken triggers a credential rotation for a node
func (c *Client) RotateToken(ctx context.Context, nodeID string) error {
	return c.do(ctx, http.MethodPost, "/v1/nodes/"+nodeID+"/rotate-token", nil, nil)
}

// RemoveNode deletes a node from the inventory
func (c *Client) RemoveNode(ctx context.Context, nodeID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/nodes/"+nodeID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	return doJSON(ctx, c.http, method, c.baseURL+path, "", in, out)
}

// AgentClient speaks to agents (token push) and to the controller on
// an agent's behalf (heartbeats)
type AgentClient struct {
	http *http.Client
}

// NewAgentClient creates a client for controller↔agent traffic
func NewAgentClient() *AgentClient {
	return &AgentClient{
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// PushToken delivers a new credential to the agent at addr,
// authenticated with the credential the agent currently holds. A nil
// return means the agent acknowledged and durably stored the new
// credential.
func (a *AgentClient) PushToken(ctx context.Context, addr, authToken, newToken string) error {
	url := normalizeBaseURL(addr) + "/v1/token"
	req := types.TokenUpdateRequest{Token: newToken}
	if err := doJSON(ctx, a.http, http.MethodPost, url, authToken, req, nil); err != nil {
		return fmt.Errorf("token push to %s: %w", addr, err)
	}
	return nil
}

// Heartbeat sends one telemetry report to the controller
func (a *AgentClient) Heartbeat(ctx context.Context, controllerURL, token string, report *types.HeartbeatReport) error {
	url := normalizeBaseURL(controllerURL) + "/v1/nodes/heartbeat"
	return doJSON(ctx, a.http, http.MethodPost, url, token, report, nil)
}

// doJSON performs one JSON request/response exchange
func doJSON(ctx context.Context, client *http.Client, method, url, bearer string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		var errResp types.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error != "" {
			return fmt.Errorf("%w: %s (HTTP %d)", ErrRejected, errResp.Error, resp.StatusCode)
		}
		return fmt.Errorf("%w: HTTP %d", ErrRejected, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func normalizeBaseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}
	return "http://" + strings.TrimSuffix(addr, "/")
}
