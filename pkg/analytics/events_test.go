package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) (*BusinessEventTracker, *captureServer, *Service) {
	t.Helper()
	cs := newCaptureServer(t)
	service := newTestService(t, cs, nil)
	return NewBusinessEventTracker(NewContextualService(service)), cs, service
}

func TestTrackSourceConnectionCreated(t *testing.T) {
	tracker, cs, service := newTestTracker(t)

	headers := RequestHeaders{UserID: "user-1", OrganizationID: uuid.New()}
	connectionID := uuid.New()
	tracker.TrackSourceConnectionCreated(headers, connectionID, "github", "composio")
	service.Close()

	events := cs.events()
	require.Len(t, events, 1)
	assert.Equal(t, EventSourceConnectionCreated, events[0].Event)
	assert.Equal(t, connectionID.String(), events[0].Properties["connection_id"])
	assert.Equal(t, "github", events[0].Properties["source"])
	assert.Equal(t, "composio", events[0].Properties["auth_provider"])
}

func TestSyncLifecycleEvents(t *testing.T) {
	tracker, cs, service := newTestTracker(t)

	headers := RequestHeaders{UserID: "user-1", OrganizationID: uuid.New()}
	syncID := uuid.New()
	connectionID := uuid.New()

	tracker.TrackSyncStarted(headers, syncID, connectionID, "notion")
	tracker.TrackSyncCompleted(headers, syncID, "notion", 1234, 90*time.Second)
	tracker.TrackSyncFailed(headers, syncID, "notion", "authentication")
	tracker.TrackSyncCancelled(headers, syncID, "notion")
	service.Close()

	events := cs.events()
	require.Len(t, events, 4)

	assert.Equal(t, EventSyncStarted, events[0].Event)
	assert.Equal(t, connectionID.String(), events[0].Properties["connection_id"])

	assert.Equal(t, EventSyncCompleted, events[1].Event)
	assert.EqualValues(t, 1234, events[1].Properties["entities_synced"])
	assert.EqualValues(t, 90000, events[1].Properties["duration_ms"])

	assert.Equal(t, EventSyncFailed, events[2].Event)
	assert.Equal(t, "authentication", events[2].Properties["error_type"])

	assert.Equal(t, EventSyncCancelled, events[3].Event)
	for _, event := range events {
		assert.Equal(t, syncID.String(), event.Properties["sync_id"])
		assert.Equal(t, "notion", event.Properties["source"])
	}
}

func TestSetOrganizationProperties(t *testing.T) {
	tracker, cs, service := newTestTracker(t)

	orgID := uuid.New()
	tracker.SetOrganizationProperties(orgID, map[string]interface{}{
		"name": "Acme",
		"plan": "team",
	})
	service.Close()

	events := cs.events()
	require.Len(t, events, 1)
	assert.Equal(t, "$groupidentify", events[0].Event)
	assert.Equal(t, "organization", events[0].Properties["$group_type"])
	assert.Equal(t, orgID.String(), events[0].Properties["$group_key"])
}
