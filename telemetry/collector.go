package telemetry

import "github.com/pthm-cable/fluid/particles"

// Collector tracks stats windows measured in solver steps and produces a
// WindowStats when one closes.
type Collector struct {
	windowSteps int

	// Current window tracking
	windowStartStep int
	steps           int
	simTime         float64
}

// NewCollector creates a collector flushing every windowSteps steps. A
// window below 1 never flushes.
func NewCollector(windowSteps int) *Collector {
	return &Collector{windowSteps: windowSteps}
}

// RecordStep counts one solver step of dt simulated seconds.
func (c *Collector) RecordStep(dt float64) {
	c.steps++
	c.simTime += dt
}

// Steps returns the steps recorded since Reset.
func (c *Collector) Steps() int { return c.steps }

// SimTime returns the simulated seconds recorded since Reset.
func (c *Collector) SimTime() float64 { return c.simTime }

// ShouldFlush returns true once the current window is full.
func (c *Collector) ShouldFlush() bool {
	return c.windowSteps > 0 && c.steps-c.windowStartStep >= c.windowSteps
}

// Flush computes stats for the closing window over the current particle
// state and starts the next window.
func (c *Collector) Flush(body *particles.FluidBody, boundary *particles.FluidBoundary) WindowStats {
	stats := ComputeStats(body, boundary, c.windowStartStep, c.steps, c.simTime)
	c.windowStartStep = c.steps
	return stats
}

// Reset zeroes the counters, e.g. after the scene is rebuilt.
func (c *Collector) Reset() {
	c.windowStartStep = 0
	c.steps = 0
	c.simTime = 0
}

// WindowSteps returns the number of steps per window.
func (c *Collector) WindowSteps() int {
	return c.windowSteps
}
