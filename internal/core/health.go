package core

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// healthCheckTimeout bounds all checks together. A check still running at
// the deadline counts as unhealthy.
const healthCheckTimeout = 2 * time.Second

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthChecker reports on one dependency, such as the sunlight table or
// the remote sunlight service.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

type componentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthReport struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentHealth `json:"components,omitempty"`
}

// HandleHealth answers GET /health: 200 when every check passes, 503
// otherwise.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	report := healthReport{Status: statusHealthy}
	if s.Config != nil {
		report.Version = s.Config.Build.Version
	}
	if len(s.HealthChecks) > 0 {
		report.Components = runHealthChecks(ctx, s.HealthChecks)
	}

	status := http.StatusOK
	for _, c := range report.Components {
		if c.Status != statusHealthy {
			report.Status = statusUnhealthy
			status = http.StatusServiceUnavailable
			break
		}
	}
	JSON(w, r, status, report)
}

// runHealthChecks runs every check concurrently and waits until all have
// answered or ctx is done, whichever comes first.
func runHealthChecks(ctx context.Context, checks []HealthChecker) map[string]componentHealth {
	type outcome struct {
		index int
		err   error
	}

	// Buffered so a check finishing after the deadline never blocks.
	outcomes := make(chan outcome, len(checks))
	components := make(map[string]componentHealth, len(checks))
	for i, c := range checks {
		components[c.Name()] = componentHealth{Status: statusUnhealthy, Message: "health check timed out"}
		go func() {
			outcomes <- outcome{index: i, err: runCheck(ctx, c)}
		}()
	}

	for pending := len(checks); pending > 0; pending-- {
		select {
		case o := <-outcomes:
			components[checks[o.index].Name()] = healthFromError(o.err)
		case <-ctx.Done():
			return components
		}
	}
	return components
}

func runCheck(ctx context.Context, c HealthChecker) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = fmt.Errorf("check panicked: %v", rvr)
		}
	}()
	return c.Check(ctx)
}

func healthFromError(err error) componentHealth {
	if err != nil {
		return componentHealth{Status: statusUnhealthy, Message: err.Error()}
	}
	return componentHealth{Status: statusHealthy}
}
