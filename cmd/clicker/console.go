package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// consoleObserver prints session status lines for the headless mode. Countdown lines
// arrive every wait slice and are thinned to one per second.
type consoleObserver struct {
	mu        sync.Mutex
	out       io.Writer
	countdown *rate.Limiter
	now       func() time.Time
	running   int
}

func newConsoleObserver(out io.Writer) *consoleObserver {
	return &consoleObserver{
		out:       out,
		countdown: rate.NewLimiter(rate.Every(time.Second), 1),
		now:       time.Now,
	}
}

func (c *consoleObserver) Status(message string) {
	if isCountdown(message) && !c.countdown.Allow() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s %s\n", c.now().Format("15:04:05"), message)
}

// ClickIndicator has no terminal rendering; the click status line carries the position.
func (c *consoleObserver) ClickIndicator(x, y int) {}

func (c *consoleObserver) ExecutionStarted() {
	c.mu.Lock()
	c.running++
	c.mu.Unlock()
}

func (c *consoleObserver) ExecutionEnded() {
	c.mu.Lock()
	if c.running > 0 {
		c.running--
	}
	c.mu.Unlock()
}

func (c *consoleObserver) Running() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func isCountdown(message string) bool {
	return strings.Contains(message, "⏱") || strings.HasPrefix(message, "🎯")
}
