// Package budget implements the Budget Controller: a running sum of
// token/cost usage across a race's agents, with best-effort shared-stop
// dispatch when a configured threshold is crossed.
package budget

import (
	"sync"

	"github.com/hydra-cli/hydra/internal/core"
)

// Limits bounds one race's token/cost budget. A zero value disables that
// particular check.
type Limits struct {
	MaxTotalTokens int64
	MaxCostUSD     float64
}

// StopEvent is emitted exactly once, the first time a configured limit is
// crossed.
type StopEvent struct {
	Reason string
	Usage  core.UsageReport
}

// Controller tracks per-agent and aggregate usage and dispatches a
// cooperative shared stop the first time a limit is crossed. Safe for
// concurrent use: every agent's supervisor reports usage on its own
// goroutine.
type Controller struct {
	limits Limits
	onStop func(StopEvent)

	mu       sync.Mutex
	total    core.UsageReport
	cancels  map[core.AgentKey]func()
	stopped  bool
}

// New constructs a controller bound to limits, invoking onStop (if
// non-nil) exactly once when a threshold is first crossed.
func New(limits Limits, onStop func(StopEvent)) *Controller {
	return &Controller{limits: limits, onStop: onStop, cancels: make(map[core.AgentKey]func())}
}

// Register records the cancellation handle for one agent's supervisor, so
// a later shared stop can reach it.
func (c *Controller) Register(agentKey core.AgentKey, cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancels[agentKey] = cancel
	if c.stopped {
		// A stop already happened before this agent registered (possible
		// under a very tight budget); cancel it immediately too.
		cancel()
	}
}

// Observe folds one usage update into the running total and triggers a
// shared stop if a limit is now crossed.
func (c *Controller) Observe(agentKey core.AgentKey, usage core.UsageReport) {
	c.mu.Lock()
	c.total.Add(usage)
	total := c.total
	alreadyStopped := c.stopped
	c.mu.Unlock()

	if alreadyStopped {
		return
	}

	reason := c.crossedReason(total)
	if reason == "" {
		return
	}

	c.stopAll(reason, total)
}

// Total returns the current aggregate usage across every observed agent.
func (c *Controller) Total() core.UsageReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (c *Controller) crossedReason(total core.UsageReport) string {
	if c.limits.MaxTotalTokens > 0 && total.TotalTokens() >= c.limits.MaxTotalTokens {
		return "max_total_tokens"
	}
	if c.limits.MaxCostUSD > 0 && total.EstCostUSD >= c.limits.MaxCostUSD {
		return "max_cost_usd"
	}
	return ""
}

func (c *Controller) stopAll(reason string, total core.UsageReport) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancels := make([]func(), 0, len(c.cancels))
	for _, cancel := range c.cancels {
		cancels = append(cancels, cancel)
	}
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	if c.onStop != nil {
		c.onStop(StopEvent{Reason: reason, Usage: total})
	}
}
