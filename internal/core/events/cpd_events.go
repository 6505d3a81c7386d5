package events

import (
	"fmt"
	"time"
)

const (
	EntryChangedEvent = "entry.changed"
	GoalUpdatedEvent  = "goal.updated"
)

// NewEntryChanged is published whenever a CPD entry is created, updated or
// deleted. Subscribers recompute every goal whose scope contains the owner.
func NewEntryChanged(entryID, ownerID int64) BaseEvent {
	return BaseEvent{
		ID:        fmt.Sprintf("entry-%d-%d", entryID, time.Now().UnixNano()),
		Type:      EntryChangedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"entry_id": entryID,
			"user_id":  ownerID,
		},
	}
}

// NewGoalUpdated is published when a goal is created or its target hours or
// deadline change, so progress is recomputed against the new target.
func NewGoalUpdated(goalID int64) BaseEvent {
	return BaseEvent{
		ID:        fmt.Sprintf("goal-%d-%d", goalID, time.Now().UnixNano()),
		Type:      GoalUpdatedEvent,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"goal_id": goalID,
		},
	}
}

// EntryOwnerID extracts the owner from an entry.changed payload.
func EntryOwnerID(e Event) (int64, bool) {
	data, ok := e.Payload().(map[string]interface{})
	if !ok {
		return 0, false
	}
	id, ok := data["user_id"].(int64)
	return id, ok
}

// GoalID extracts the goal id from a goal.updated payload.
func GoalID(e Event) (int64, bool) {
	data, ok := e.Payload().(map[string]interface{})
	if !ok {
		return 0, false
	}
	id, ok := data["goal_id"].(int64)
	return id, ok
}
