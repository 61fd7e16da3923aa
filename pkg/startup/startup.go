// Package startup brings external dependencies up in order, retrying the
// whole sequence with fibonacci backoff until the attempt budget runs out.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is one externally backed component with startup ordering
type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
}

type status int

const (
	statusPending status = iota
	statusStarted
	statusFailed
)

// Startup starts registered dependencies in dependency order
type Startup struct {
	deps        map[string]Dependency
	statuses    map[string]status
	maxAttempts int
	logger      ectologger.Logger
}

// NewStartup creates a startup runner with the given attempt budget
func NewStartup(logger ectologger.Logger, maxAttempts int) *Startup {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Startup{
		deps:        make(map[string]Dependency),
		statuses:    make(map[string]status),
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// AddDependency registers a dependency by name
func (s *Startup) AddDependency(dep Dependency) {
	s.deps[dep.GetName()] = dep
}

// Start attempts the full dependency set. Dependencies that already started
// are not restarted on a retry.
func (s *Startup) Start(ctx context.Context) error {
	var lastErr error

	a, b := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = nil
		for _, dep := range s.deps {
			if err := s.startDependency(ctx, dep); err != nil {
				s.logger.WithError(err).Errorf("Startup dependency '%s' attempt %d failed", dep.GetName(), attempt)
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}

		s.logger.Infof("Retrying in %d seconds (attempt %d/%d)", a, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(a) * time.Second):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Startup) startDependency(ctx context.Context, dep Dependency) error {
	name := dep.GetName()
	if s.statuses[name] == statusStarted {
		return nil
	}

	for _, upstream := range dep.DependsOn() {
		up, ok := s.deps[upstream]
		if !ok {
			return fmt.Errorf("dependency '%s' requires unregistered dependency '%s'", name, upstream)
		}
		if s.statuses[upstream] != statusStarted {
			if err := s.startDependency(ctx, up); err != nil {
				return err
			}
		}
	}

	s.logger.WithField("dependency", name).Infof("Starting dependency '%s'", name)
	s.statuses[name] = statusPending
	if err := dep.Start(ctx); err != nil {
		s.statuses[name] = statusFailed
		return err
	}
	s.statuses[name] = statusStarted
	return nil
}
