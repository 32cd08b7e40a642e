// Package output inserts transcripts into the focused application through the clipboard.
package output

import (
	"fmt"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
)

// Clipboard is the clipboard service used by Inserter. ChangeCount increases
// on every write, ours or another program's.
type Clipboard interface {
	Write(text string) error
	Read() (string, error)
	ChangeCount() (int64, error)
}

// SystemClipboard is the desktop clipboard reached through atotto/clipboard
// (wl-clipboard, xclip or xsel). The system offers no change counter, so one is
// derived: our writes bump it directly and a read that differs from the last
// observed content counts as an external write.
type SystemClipboard struct {
	read  func() (string, error)
	write func(string) error

	mu    sync.Mutex
	count int64
	last  string
	seen  bool
}

// NewSystemClipboard returns the clipboard backed by the platform utility.
func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{read: clipboard.ReadAll, write: clipboard.WriteAll}
}

// Available reports whether a supported clipboard utility was found on PATH.
func Available() bool {
	return !clipboard.Unsupported
}

func (c *SystemClipboard) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	c.count++
	c.last = normalizeClip(text)
	c.seen = true
	return nil
}

func (c *SystemClipboard) Read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text, err := c.read()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	c.observeLocked(text)
	return text, nil
}

func (c *SystemClipboard) ChangeCount() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text, err := c.read()
	if err != nil {
		return 0, fmt.Errorf("read clipboard: %w", err)
	}
	c.observeLocked(text)
	return c.count, nil
}

func (c *SystemClipboard) observeLocked(text string) {
	text = normalizeClip(text)
	if c.seen && text == c.last {
		return
	}
	if c.seen {
		c.count++
	}
	c.last = text
	c.seen = true
}

// normalizeClip drops trailing line breaks some clipboard utilities append on read.
func normalizeClip(text string) string {
	return strings.TrimRight(text, "\r\n")
}
