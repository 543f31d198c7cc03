package cache

// Stats describes the tiered cache's remote budget and fast-layer size.
type Stats struct {
	RemoteAvailable bool
	DailyRequests   int64
	DailyLimit      int64
	MemoryEntries   int
}

// UsagePercentage returns DailyRequests/DailyLimit*100, 0 when unlimited.
func (s Stats) UsagePercentage() float64 {
	if s.DailyLimit <= 0 {
		return 0
	}
	return float64(s.DailyRequests) / float64(s.DailyLimit) * 100
}

// UsingFallback reports whether reads are served by the fast layer alone.
func (s Stats) UsingFallback() bool {
	return !s.RemoteAvailable || (s.DailyLimit > 0 && s.DailyRequests >= s.DailyLimit)
}
