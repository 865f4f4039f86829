package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wricardo/tictactoe-rooms/api"
	"github.com/wricardo/tictactoe-rooms/game/service"
)

// EventError is a game error returned by the server for one event.
type EventError struct {
	Code    service.Code
	Message string
}

func (e *EventError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type wireMessage struct {
	Type    service.MessageType `json:"type"`
	Payload json.RawMessage     `json:"payload"`
}

type eventResponse struct {
	ConnectionID string        `json:"connectionId"`
	Messages     []wireMessage `json:"messages"`
}

// Client plays one connection over the REST API. The server assigns the
// connection id on the first event.
type Client struct {
	baseURL      string
	connectionID string
	client       *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ConnectionID is empty until the first event was sent.
func (c *Client) ConnectionID() string {
	return c.connectionID
}

func (c *Client) send(ctx context.Context, typ service.EventType, payload interface{}) ([]wireMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	body, err := json.Marshal(api.EventRequest{ConnectionID: c.connectionID, Type: typ, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/events", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", typ, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s failed: %s - %s", typ, resp.Status, string(data))
	}

	var er eventResponse
	if err := json.Unmarshal(data, &er); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", typ, err)
	}
	c.connectionID = er.ConnectionID

	for _, msg := range er.Messages {
		if msg.Type != service.MessageError {
			continue
		}
		var payload service.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("parse error message: %w", err)
		}
		return nil, &EventError{Code: payload.Code, Message: payload.Message}
	}
	return er.Messages, nil
}

// CreateRoom opens a room and returns its id.
func (c *Client) CreateRoom(ctx context.Context, secret string) (string, error) {
	msgs, err := c.send(ctx, service.EventCreateRoom, map[string]string{"secret": secret})
	if err != nil {
		return "", err
	}
	for _, msg := range msgs {
		if msg.Type != service.MessageRoomCreated {
			continue
		}
		var created service.RoomCreatedPayload
		if err := json.Unmarshal(msg.Payload, &created); err != nil {
			return "", fmt.Errorf("parse room_created: %w", err)
		}
		return created.RoomID, nil
	}
	return "", fmt.Errorf("create_room: no room_created message")
}

func (c *Client) JoinRoom(ctx context.Context, roomID, secret string) error {
	_, err := c.send(ctx, service.EventJoinRoom, map[string]string{"roomId": roomID, "secret": secret})
	return err
}

func (c *Client) Move(ctx context.Context, roomID string, index int) error {
	_, err := c.send(ctx, service.EventMakeMove, map[string]interface{}{"roomId": roomID, "index": index})
	return err
}

func (c *Client) Vote(ctx context.Context, roomID string) error {
	_, err := c.send(ctx, service.EventReplayVote, map[string]string{"roomId": roomID})
	return err
}

func (c *Client) Leave(ctx context.Context, roomID string) error {
	_, err := c.send(ctx, service.EventLeaveRoom, map[string]string{"roomId": roomID})
	return err
}

// Room fetches this connection's view of a room.
func (c *Client) Room(ctx context.Context, roomID string) (*service.RoomView, error) {
	u := fmt.Sprintf("%s/api/rooms/%s?connectionId=%s", c.baseURL, url.PathEscape(roomID), url.QueryEscape(c.connectionID))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string       `json:"error"`
			Code  service.Code `json:"code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Code != "" {
			return nil, &EventError{Code: errResp.Code, Message: errResp.Error}
		}
		return nil, fmt.Errorf("get room failed: %s", resp.Status)
	}

	var view service.RoomView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("parse room: %w", err)
	}
	return &view, nil
}
