package cache

// SweepJob adapts the cache's periodic sweep to the scheduler's Job
// interface.
type SweepJob struct {
	Cache *Cache
}

// Name returns the job identifier.
func (j *SweepJob) Name() string { return "cache_sweep" }

// Run performs one sweep pass.
func (j *SweepJob) Run() error {
	j.Cache.Sweep()
	return nil
}
