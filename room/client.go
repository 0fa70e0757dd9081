// Package room drives the room lifecycle against the serverless backend:
// create a call room, then dispatch the agent into it. The two calls are
// sequenced and never retried automatically; failures surface to the user,
// who re-initiates from the start screen.
package room

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

// ErrServiceUnavailable means room creation failed: the backend is at
// capacity or unreachable.
var ErrServiceUnavailable = errors.New("room service unavailable")

// ErrJoinFailure means the agent could not be dispatched into the room.
var ErrJoinFailure = errors.New("agent failed to join room")

// Client calls the backend's /create_room and /start endpoints with bearer
// authentication.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewClient(baseURL, authToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type createRoomResponse struct {
	Result struct {
		URL string `json:"url"`
	} `json:"result"`
}

// CreateRoom requests a new call room and returns its URL. Any non-200
// response or network failure is ErrServiceUnavailable.
func (c *Client) CreateRoom(ctx context.Context) (string, error) {
	resp, err := c.post(ctx, "/create_room", []byte("{}"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: backend returned %d", ErrServiceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrServiceUnavailable, err)
	}

	var parsed createRoomResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrServiceUnavailable, err)
	}
	if parsed.Result.URL == "" {
		return "", fmt.Errorf("%w: response missing room url", ErrServiceUnavailable)
	}
	return parsed.Result.URL, nil
}

type startRequest struct {
	RoomURL string `json:"room_url"`
}

// StartAgent dispatches the agent into the given room. The room URL doubles
// as the run token scoping the product-feed subscription. Non-200 responses
// are ErrJoinFailure.
func (c *Client) StartAgent(ctx context.Context, roomURL string) (string, error) {
	body, err := sonic.Marshal(startRequest{RoomURL: roomURL})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", ErrJoinFailure, err)
	}

	resp, err := c.post(ctx, "/start", body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrJoinFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: backend returned %d", ErrJoinFailure, resp.StatusCode)
	}

	return roomURL, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}
