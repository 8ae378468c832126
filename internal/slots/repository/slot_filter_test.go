package repository

import (
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"pitchbook/pkg/model"
)

// The acquire and BookMany writes share this predicate; it must accept
// every state Slot.LockExpired treats as reclaimable, including a
// reservation that never recorded locked_at.
func TestLockableFilter(t *testing.T) {
	playerID := "507f1f77bcf86cd799439099"
	cutoff := time.Date(2026, 8, 28, 9, 57, 0, 0, time.UTC)

	branches := lockableFilter(playerID, cutoff)

	want := []bson.M{
		{"status": model.SlotAvailable},
		{"status": model.SlotReserved, "locked_by": playerID},
		{"status": model.SlotReserved, "locked_at": bson.M{"$lt": cutoff}},
		{"status": model.SlotReserved, "locked_at": nil},
	}
	if len(branches) != len(want) {
		t.Fatalf("filter has %d branches, want %d", len(branches), len(want))
	}
	for i, branch := range want {
		if !reflect.DeepEqual(branches[i], branch) {
			t.Errorf("branch %d = %v, want %v", i, branches[i], branch)
		}
	}
}
