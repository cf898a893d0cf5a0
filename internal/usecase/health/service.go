package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDatabase  = "database"
	ComponentIndex     = "index"
	ComponentGenerator = "generator"
	ComponentEmbedding = "embedding"
)

const defaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status       Status
	Checks       map[string]CheckResult
	ProductCount int
	IndexVersion uint64
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	index     IndexStatus
	generator BackendChecker
	embedding BackendChecker
	timeout   time.Duration
}

// New creates a Service. Any dependency may be nil and is then not reported.
func New(db DBPinger, index IndexStatus, generator, embedding BackendChecker) *Service {
	return &Service{
		db:        db,
		index:     index,
		generator: generator,
		embedding: embedding,
		timeout:   defaultCheckTimeout,
	}
}

// Check runs the remote checks in parallel, each under its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	remote := map[string]func(context.Context) error{}
	if s.db != nil {
		remote[ComponentDatabase] = s.db.Ping
	}
	if s.generator != nil {
		remote[ComponentGenerator] = s.generator.HealthCheck
	}
	if s.embedding != nil {
		remote[ComponentEmbedding] = s.embedding.HealthCheck
	}

	checks := make(map[string]CheckResult, len(remote)+1)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, check := range remote {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := CheckOK
			if err := check(cctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	r := Report{Status: Healthy, Checks: checks}
	if s.index != nil {
		checks[ComponentIndex] = CheckOK
		if !s.index.Ready() {
			checks[ComponentIndex] = CheckError
		}
		r.ProductCount = s.index.Count()
		r.IndexVersion = s.index.Version()
	}

	for _, v := range checks {
		if v == CheckError {
			r.Status = Degraded
			break
		}
	}
	return r
}
