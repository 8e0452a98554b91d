package index

// Keys builds the key names of the three key families plus the per-refresh staging keys.
type Keys struct {
	// Prefix is prepended to every key.
	Prefix string
}

// Live returns the key of a segment's Live Set (segment -> members).
func (k Keys) Live(segmentID string) string {
	return k.Prefix + "segment:" + segmentID
}

// Member returns the key of a member's reverse index entry (member -> segments).
func (k Keys) Member(memberID string) string {
	return k.Prefix + "member:" + memberID
}

// Changes returns the key of the global change queue.
func (k Keys) Changes() string {
	return k.Prefix + "changes"
}

// StageAdd holds the full desired member set while a refresh assembles it.
func (k Keys) StageAdd(segmentID string) string {
	return k.Prefix + "stage_add:" + segmentID
}

// StageNew holds members being added by a refresh.
func (k Keys) StageNew(segmentID string) string {
	return k.Prefix + "stage_new:" + segmentID
}

// StageDel holds members being removed by a refresh.
func (k Keys) StageDel(segmentID string) string {
	return k.Prefix + "stage_del:" + segmentID
}
