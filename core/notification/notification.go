package notification

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	Success Type = "success"
	Warning Type = "warning"
	Info    Type = "info"
	Error   Type = "error"
)

const DefaultCapacity = 100

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Center keeps the latest notifications, most recent first.
// When full, the oldest notification is dropped.
type Center struct {
	mu       sync.RWMutex
	items    []Notification // newest first
	capacity int
	nowFn    func() time.Time
}

func NewCenter(capacity int) *Center {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Center{capacity: capacity, nowFn: time.Now}
}

// Add stores a new unread notification and returns it.
func (c *Center) Add(typ Type, title, message string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Title:     title,
		Message:   message,
		Timestamp: c.nowFn().UTC(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, Notification{})
	copy(c.items[1:], c.items)
	c.items[0] = n
	if len(c.items) > c.capacity {
		c.items = c.items[:c.capacity]
	}
	return n
}

// List returns a copy of the notifications, most recent first.
func (c *Center) List() []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Center) MarkAsRead(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (c *Center) MarkAllAsRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		c.items[i].Read = true
	}
}

func (c *Center) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

func (c *Center) UnreadCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int
	for _, it := range c.items {
		if !it.Read {
			n++
		}
	}
	return n
}
