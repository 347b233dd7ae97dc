package redisx

import "time"

const (
	// Form draft: draft:{client_id}:{draft_key} -> DraftFields JSON
	KeyDraft = "draft:%s:%s"

	// Cached sync status: record_status:{record_id} -> SyncStatus JSON
	KeyRecordStatus = "record_status:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"

	// Delivery result that could not be stored yet: relay_pending:{record_id} -> SyncStatus JSON
	KeyPendingSync = "relay_pending:%s"
)

var (
	TTLDraft       = 30 * 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLPendingSync = 7 * 24 * time.Hour
)
