package models

// DisappearingMessagesConfiguration is the per-thread auto-delete setting.
// It lives in its own keyspace and is referenced by thread id; a missing
// record reads as the disabled default.
type DisappearingMessagesConfiguration struct {
	ThreadID  string `json:"thread_id"`
	Enabled   bool   `json:"enabled"`
	DurationS uint32 `json:"duration_s,omitempty"`
}

// DurationSeconds returns the active duration, zero when disabled.
func (c DisappearingMessagesConfiguration) DurationSeconds() uint32 {
	if !c.Enabled {
		return 0
	}
	return c.DurationS
}
