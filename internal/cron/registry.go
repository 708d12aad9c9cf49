package cron

import (
	"context"
	"fmt"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a cycle runs, in registration order. Job names
// label metrics and log lines, so they must be unique.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry from jobs, skipping nil entries.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{}
	seen := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		name := job.Name()
		if name == "" {
			return nil, fmt.Errorf("cron job name required")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("cron job %q registered twice", name)
		}
		seen[name] = struct{}{}
		registry.jobs = append(registry.jobs, job)
	}
	return registry, nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	if r == nil {
		return nil
	}
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
