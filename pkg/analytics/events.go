package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Business event names. These are stable identifiers consumed by
// downstream dashboards; renaming one orphans its history.
const (
	EventSourceConnectionCreated = "source_connection_created"
	EventSyncStarted             = "sync_started"
	EventSyncCompleted           = "sync_completed"
	EventSyncFailed              = "sync_failed"
	EventSyncCancelled           = "sync_cancelled"
)

// BusinessEventTracker emits domain lifecycle events through the
// contextual service.
type BusinessEventTracker struct {
	contextual *ContextualService
}

// NewBusinessEventTracker creates a tracker over the contextual service.
func NewBusinessEventTracker(contextual *ContextualService) *BusinessEventTracker {
	return &BusinessEventTracker{contextual: contextual}
}

// TrackSourceConnectionCreated records that a source connection was
// established, including which auth provider brokered it.
func (t *BusinessEventTracker) TrackSourceConnectionCreated(headers RequestHeaders, connectionID uuid.UUID, source, authProvider string) {
	t.contextual.Track(headers, EventSourceConnectionCreated, map[string]interface{}{
		"connection_id": connectionID.String(),
		"source":        source,
		"auth_provider": authProvider,
	})
}

// TrackSyncStarted records the start of a sync run.
func (t *BusinessEventTracker) TrackSyncStarted(headers RequestHeaders, syncID, connectionID uuid.UUID, source string) {
	t.contextual.Track(headers, EventSyncStarted, map[string]interface{}{
		"sync_id":       syncID.String(),
		"connection_id": connectionID.String(),
		"source":        source,
	})
}

// TrackSyncCompleted records a successful sync run with its volume.
func (t *BusinessEventTracker) TrackSyncCompleted(headers RequestHeaders, syncID uuid.UUID, source string, entitiesSynced int64, duration time.Duration) {
	t.contextual.Track(headers, EventSyncCompleted, map[string]interface{}{
		"sync_id":         syncID.String(),
		"source":          source,
		"entities_synced": entitiesSynced,
		"duration_ms":     duration.Milliseconds(),
	})
}

// TrackSyncFailed records a failed sync run with the failure class.
func (t *BusinessEventTracker) TrackSyncFailed(headers RequestHeaders, syncID uuid.UUID, source, errorType string) {
	t.contextual.Track(headers, EventSyncFailed, map[string]interface{}{
		"sync_id":    syncID.String(),
		"source":     source,
		"error_type": errorType,
	})
}

// TrackSyncCancelled records a sync run cancelled before completion.
func (t *BusinessEventTracker) TrackSyncCancelled(headers RequestHeaders, syncID uuid.UUID, source string) {
	t.contextual.Track(headers, EventSyncCancelled, map[string]interface{}{
		"sync_id": syncID.String(),
		"source":  source,
	})
}

// SetOrganizationProperties updates group-level properties for an
// organization.
func (t *BusinessEventTracker) SetOrganizationProperties(orgID uuid.UUID, properties map[string]interface{}) {
	t.contextual.service.SetGroupProperties("organization", orgID.String(), properties)
}
