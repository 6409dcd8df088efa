package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Step is one side effect in an ordered chain.
type Step struct {
	Name string
	Run  func(context.Context) error
}

// Chain executes side-effect steps strictly in order. Each step waits
// for the previous one; a cancellation check runs before every step. A
// failing step stops the chain and surfaces the error, it never takes
// unrelated events down with it.
type Chain struct {
	steps  []Step
	logger *slog.Logger
}

func NewChain(logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{logger: logger}
}

// Then appends a step.
func (c *Chain) Then(name string, run func(context.Context) error) *Chain {
	c.steps = append(c.steps, Step{Name: name, Run: run})
	return c
}

// Pause appends a fixed delay that still honors cancellation.
func (c *Chain) Pause(d time.Duration) *Chain {
	return c.Then("pause", func(ctx context.Context) error {
		if d <= 0 {
			return nil
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	})
}

// Execute runs the chain.
func (c *Chain) Execute(ctx context.Context) error {
	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Run(ctx); err != nil {
			c.logger.Error("effect step failed", "step", step.Name, "error", err)
			return fmt.Errorf("effect %q: %w", step.Name, err)
		}
	}
	return nil
}
