package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Context is the persisted login context: who is signed in, against which server.
type Context struct {
	// Username is the signed-in user.
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	// Server is the base URL the user signed in to.
	Server string `yaml:"server,omitempty" json:"server,omitempty"`
	// LastRoom is the room the user was last in.
	LastRoom string `yaml:"last_room,omitempty" json:"last_room,omitempty"`
	// UpdatedAt is when the context was last modified.
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// IsEmpty returns true if nobody is signed in.
func (c *Context) IsEmpty() bool {
	return strings.TrimSpace(c.Username) == ""
}

// SignIn records a successful login. Switching servers forgets the last room.
func (c *Context) SignIn(username, server string) {
	if c.Server != server {
		c.LastRoom = ""
	}
	c.Username = strings.TrimSpace(username)
	c.Server = server
	c.UpdatedAt = time.Now()
}

// SetRoom records the current room.
func (c *Context) SetRoom(room string) {
	c.LastRoom = room
	c.UpdatedAt = time.Now()
}

// Clear removes all context.
func (c *Context) Clear() {
	c.Username = ""
	c.Server = ""
	c.LastRoom = ""
	c.UpdatedAt = time.Now()
}

// String returns a human-readable representation of the context.
func (c *Context) String() string {
	if c.IsEmpty() {
		return "(not signed in)"
	}
	out := c.Username
	if c.Server != "" {
		out += "@" + c.Server
	}
	if c.LastRoom != "" {
		out += " #" + c.LastRoom
	}
	return out
}

// ContextStore manages loading and saving context.
type ContextStore struct {
	path string
	mu   sync.RWMutex
}

// NewContextStore creates a new context store.
// If path is empty, uses the default path (~/.config/chatroom/context.yaml).
func NewContextStore(path string) *ContextStore {
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".config", "chatroom", "context.yaml")
	}
	return &ContextStore{path: path}
}

// Path returns the context file path.
func (s *ContextStore) Path() string {
	return s.path
}

// Load reads the context from disk.
// Returns an empty context if the file doesn't exist.
func (s *ContextStore) Load() (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := &Context{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ctx, nil
		}
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	if err := yaml.Unmarshal(data, ctx); err != nil {
		return nil, fmt.Errorf("failed to parse context file: %w", err)
	}

	return ctx, nil
}

// Save writes the context to disk.
func (s *ContextStore) Save(ctx *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create context directory: %w", err)
	}

	data, err := yaml.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("failed to serialize context: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write context file: %w", err)
	}

	return nil
}

// Clear removes the context file.
func (s *ContextStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove context file: %w", err)
	}
	return nil
}
