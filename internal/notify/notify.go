// Package notify implements the channel of transient, auto-expiring user notifications.
package notify

import (
	"sync"
	"time"

	"github.com/and161185/clear/internal/model"
)

// DefaultDuration is used when Show receives a non-positive duration.
const DefaultDuration = 3 * time.Second

// Channel holds the notifications currently displayed.
type Channel struct {
	mu        sync.Mutex
	nextID    int64
	items     []model.Notification
	timers    map[int64]*time.Timer
	listeners []func(model.Notification)
	def       time.Duration
}

// New constructs a channel; def <= 0 selects DefaultDuration.
func New(def time.Duration) *Channel {
	if def <= 0 {
		def = DefaultDuration
	}
	return &Channel{timers: map[int64]*time.Timer{}, def: def}
}

// Show appends a notification and schedules its removal after d.
func (c *Channel) Show(message string, sev model.Severity, d time.Duration) int64 {
	if d <= 0 {
		d = c.def
	}
	c.mu.Lock()
	c.nextID++
	n := model.Notification{ID: c.nextID, Message: message, Severity: sev, Duration: d}
	c.items = append(c.items, n)
	id := n.ID
	c.timers[id] = time.AfterFunc(d, func() { c.Remove(id) })
	listeners := append([]func(model.Notification){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(n)
	}
	return id
}

// Success shows a success notification with the default duration.
func (c *Channel) Success(message string) int64 { return c.Show(message, model.SeveritySuccess, 0) }

// Error shows an error notification with the default duration.
func (c *Channel) Error(message string) int64 { return c.Show(message, model.SeverityError, 0) }

// Info shows an info notification with the default duration.
func (c *Channel) Info(message string) int64 { return c.Show(message, model.SeverityInfo, 0) }

// Warning shows a warning notification with the default duration.
func (c *Channel) Warning(message string) int64 { return c.Show(message, model.SeverityWarning, 0) }

// Remove drops the notification immediately. Unknown ids are ignored.
func (c *Channel) Remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// List returns the displayed notifications in insertion order.
func (c *Channel) List() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Notification(nil), c.items...)
}

// Subscribe registers fn to be called for every shown notification.
func (c *Channel) Subscribe(fn func(model.Notification)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Close stops pending expiry timers and clears the channel.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.items = nil
}
