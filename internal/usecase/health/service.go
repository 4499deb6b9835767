package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a failing auxiliary component.
	Degraded Status = "degraded"
	// Unhealthy indicates the search engine is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// EngineCheck is the name of the search engine check.
const EngineCheck = "engine"

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type namedCheck struct {
	name   string
	pinger Pinger
}

// Service coordinates health checks.
type Service struct {
	engine Pinger
	checks []namedCheck
}

// New creates a Service checking the search engine.
func New(engine Pinger) *Service {
	return &Service{engine: engine}
}

// WithCheck adds an auxiliary component. A nil pinger is ignored.
func (s *Service) WithCheck(name string, p Pinger) *Service {
	if p != nil {
		s.checks = append(s.checks, namedCheck{name: name, pinger: p})
		sort.Slice(s.checks, func(i, j int) bool { return s.checks[i].name < s.checks[j].name })
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks)+1)
	status := Healthy

	checks[EngineCheck] = ping(ctx, s.engine)
	if checks[EngineCheck] == CheckError {
		status = Unhealthy
	}

	for _, c := range s.checks {
		checks[c.name] = ping(ctx, c.pinger)
		if checks[c.name] == CheckError && status == Healthy {
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks}
}

func ping(ctx context.Context, p Pinger) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
