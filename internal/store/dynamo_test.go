package store

import (
	"testing"
)

func TestPresenceKeyLayout(t *testing.T) {
	if got := statePK("t1"); got != "t1#STATE" {
		t.Fatalf("unexpected state pk %q", got)
	}
	if got := wakePK("t1"); got != "t1#WAKE" {
		t.Fatalf("unexpected wake pk %q", got)
	}
	if got := connPK("t1", "abc"); got != "t1#CONN#abc" {
		t.Fatalf("unexpected conn pk %q", got)
	}
}

func TestWakeKeyDistinctFromStateKey(t *testing.T) {
	// The wake item lives beside the snapshot, so replacing the whole
	// snapshot can never clobber the schedule.
	if statePK("t1") == wakePK("t1") {
		t.Fatal("state and wake keys must not collide")
	}
}
