// Package client talks to the chat-room service: a small HTTP API for rooms,
// history and accounts, and a websocket channel for realtime events.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thousandtech/chatroom/internal/chat"
	"github.com/thousandtech/chatroom/internal/logging"
	"github.com/thousandtech/chatroom/internal/paging"
)

// DefaultTimeout bounds every HTTP request.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNotFound is returned for unknown rooms.
	ErrNotFound = errors.New("not found")
	// ErrRejected is returned when the server answers success=false.
	ErrRejected = errors.New("rejected by server")
	// ErrInvalidRoomID is returned for room ids the server would refuse.
	ErrInvalidRoomID = errors.New("room id may only contain letters, digits, underscore and dash")
)

var roomIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Client is an HTTP client for the chat-room API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	log        zerolog.Logger
}

// New creates a client for baseURL, e.g. "http://localhost:5000".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		log:        logging.Component("client"),
	}
}

// Rooms lists the rooms with their online counts.
func (c *Client) Rooms(ctx context.Context) ([]chat.RoomInfo, error) {
	body, err := c.do(ctx, http.MethodGet, "/rooms", nil)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	var rooms []chat.RoomInfo
	if err := json.Unmarshal(body, &rooms); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return rooms, nil
}

// History fetches up to limit messages of room, skipping the offset newest.
// Messages are returned oldest first.
func (c *Client) History(ctx context.Context, room string, limit, offset int) (chat.HistoryPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	path := "/rooms/" + url.PathEscape(room) + "/messages?" + query.Encode()

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return chat.HistoryPage{}, fmt.Errorf("history %s: %w", room, err)
	}
	page, err := chat.DecodeHistoryPage(body, limit)
	if err != nil {
		return chat.HistoryPage{}, fmt.Errorf("history %s: %w", room, err)
	}
	return page, nil
}

// FetchPage implements paging.Fetcher.
func (c *Client) FetchPage(ctx context.Context, req paging.Request) (chat.HistoryPage, error) {
	return c.History(ctx, req.RoomID, req.Limit, req.Offset)
}

// Login checks credentials. A refusal is reported as ErrRejected carrying the
// server's message.
func (c *Client) Login(ctx context.Context, creds chat.Credentials) (chat.Result, error) {
	return c.auth(ctx, "/login", creds)
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, creds chat.Credentials) (chat.Result, error) {
	return c.auth(ctx, "/register", creds)
}

// CreateRoom creates a room.
func (c *Client) CreateRoom(ctx context.Context, roomID, roomName string) (chat.Result, error) {
	roomID = strings.TrimSpace(roomID)
	roomName = strings.TrimSpace(roomName)
	if roomID == "" || roomName == "" {
		return chat.Result{}, fmt.Errorf("create room: id and name are required")
	}
	if err := ValidateRoomID(roomID); err != nil {
		return chat.Result{}, fmt.Errorf("create room: %w", err)
	}
	return c.post(ctx, "/rooms", chat.NewRoom{RoomID: roomID, RoomName: roomName}, "create room")
}

// ValidateRoomID checks a new room id against the characters the server accepts.
func ValidateRoomID(roomID string) error {
	if !roomIDPattern.MatchString(roomID) {
		return fmt.Errorf("%q: %w", roomID, ErrInvalidRoomID)
	}
	return nil
}

func (c *Client) auth(ctx context.Context, path string, creds chat.Credentials) (chat.Result, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return chat.Result{}, fmt.Errorf("%s: username and password are required", strings.TrimPrefix(path, "/"))
	}
	return c.post(ctx, path, creds, strings.TrimPrefix(path, "/"))
}

func (c *Client) post(ctx context.Context, path string, payload any, op string) (chat.Result, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return chat.Result{}, fmt.Errorf("%s: %w", op, err)
	}
	body, err := c.do(ctx, http.MethodPost, path, data)
	if err != nil {
		return chat.Result{}, fmt.Errorf("%s: %w", op, err)
	}
	var result chat.Result
	if err := json.Unmarshal(body, &result); err != nil {
		return chat.Result{}, fmt.Errorf("%s: decode reply: %w", op, err)
	}
	if !result.Success {
		return result, fmt.Errorf("%s: %w: %s", op, ErrRejected, result.Msg)
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 400:
		var errResp struct {
			Msg   string `json:"msg"`
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &errResp)
		detail := errResp.Msg
		if detail == "" {
			detail = errResp.Error
		}
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, logging.Redact(detail))
	}
	return body, nil
}

// WebsocketURL derives the realtime endpoint from the HTTP base URL.
func WebsocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if path == "" {
		path = "/ws"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = ""
	return u.String(), nil
}
