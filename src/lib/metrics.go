package lib

import "sync"

// Counter names recorded by the directory server.
const (
	MetricLookups         = "directory_lookup_total"
	MetricJoinRequested   = "group_join_requested_total"
	MetricJoinApproved    = "group_join_approved_total"
	MetricJoinRejected    = "group_join_rejected_total"
	MetricMemberRemoved   = "group_member_removed_total"
	MetricInviteGenerated = "group_invite_generated_total"
	MetricGroupUpdated    = "group_updated_total"
	MetricRateLimited     = "directory_rate_limited_total"
	MetricImageUploaded   = "image_uploaded_total"
)

// Metrics is a tiny in-memory counter store for instrumentation hooks.
type Metrics struct {
	mu       sync.RWMutex
	counters map[string]uint64
}

func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[string]uint64)}
}

func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make(map[string]uint64, len(m.counters))
	for k, v := range m.counters {
		cp[k] = v
	}
	return cp
}
