// Package teuxdeux implements deuxgo.RemoteClient against the TeuxDeux v4
// HTTP API. One request per logical operation; retry and queueing policy
// live in the sync coordinator, not here.
package teuxdeux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"deuxgo"
)

type Client struct {
	baseURL     string
	authToken   string
	workspaceID int
	httpClient  *http.Client
	l           deuxgo.Logger
}

var _ deuxgo.RemoteClient = (*Client)(nil)

// NewClient creates a remote client. authToken is sent as the Authorization
// header verbatim. If httpClient is nil, http.DefaultClient is used.
func NewClient(baseURL, authToken string, workspaceID int, httpClient *http.Client, logger deuxgo.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:     baseURL,
		authToken:   authToken,
		workspaceID: workspaceID,
		httpClient:  httpClient,
		l:           logger,
	}
}

func (c *Client) Execute(ctx context.Context, t deuxgo.OpType, todoID int64, payload deuxgo.OpPayload) (deuxgo.RemoteResult, error) {
	method, url, body, err := c.buildRequest(t, todoID, payload)
	if err != nil {
		return deuxgo.RemoteResult{}, err
	}

	c.l.Debug("remote request", "method", method, "url", url, "body", string(body))
	return c.do(ctx, method, url, body)
}

func (c *Client) ListTodos(ctx context.Context, since, until string) (deuxgo.RemoteResult, error) {
	url := fmt.Sprintf("%s/workspaces/%d/todos?since=%s&until=%s", c.baseURL, c.workspaceID, since, until)
	c.l.Debug("remote request", "method", http.MethodGet, "url", url)
	return c.do(ctx, http.MethodGet, url, nil)
}

func (c *Client) buildRequest(t deuxgo.OpType, todoID int64, payload deuxgo.OpPayload) (method, url string, body []byte, err error) {
	todos := fmt.Sprintf("%s/workspaces/%d/todos", c.baseURL, c.workspaceID)

	switch t {
	case deuxgo.OpCreate:
		p, ok := payload.(deuxgo.CreatePayload)
		if !ok {
			return "", "", nil, fmt.Errorf("payload %T does not match %s", payload, t)
		}
		body, err = json.Marshal(p)
		return http.MethodPost, todos, body, err
	case deuxgo.OpUpdate:
		p, ok := payload.(deuxgo.UpdatePayload)
		if !ok {
			return "", "", nil, fmt.Errorf("payload %T does not match %s", payload, t)
		}
		body, err = json.Marshal(p)
		return http.MethodPatch, fmt.Sprintf("%s/%d", todos, todoID), body, err
	case deuxgo.OpDelete:
		return http.MethodDelete, fmt.Sprintf("%s/%d", todos, todoID), nil, nil
	case deuxgo.OpToggleDone:
		p, ok := payload.(deuxgo.TogglePayload)
		if !ok {
			return "", "", nil, fmt.Errorf("payload %T does not match %s", payload, t)
		}
		body, err = json.Marshal(p)
		return http.MethodPost, fmt.Sprintf("%s/%d/state", todos, todoID), body, err
	case deuxgo.OpReposition:
		p, ok := payload.(deuxgo.RepositionPayload)
		if !ok {
			return "", "", nil, fmt.Errorf("payload %T does not match %s", payload, t)
		}
		body, err = json.Marshal(p)
		return http.MethodPost, fmt.Sprintf("%s/%d/reposition", todos, todoID), body, err
	default:
		return "", "", nil, fmt.Errorf("unknown operation type %q", t)
	}
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (deuxgo.RemoteResult, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return deuxgo.RemoteResult{}, err
	}
	req.Header.Set("Authorization", c.authToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return deuxgo.RemoteResult{}, err
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return deuxgo.RemoteResult{}, err
	}

	result := deuxgo.RemoteResult{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
	}
	c.l.Debug("remote response", "method", method, "url", url, "status", result.StatusCode, "success", result.Success)
	return result, nil
}
