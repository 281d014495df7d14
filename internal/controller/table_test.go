package controller

import "testing"

func TestBarrierFiresExactlyOnceAtTarget(t *testing.T) {
	tbl := NewTable(3)

	fired, _ := tbl.Register(Key{Plane: 1, Ordinal: 1}, "orbit")
	if fired {
		t.Fatal("barrier fired before target reached")
	}
	fired, _ = tbl.Register(Key{Plane: 1, Ordinal: 2}, "orbit")
	if fired {
		t.Fatal("barrier fired before target reached")
	}
	fired, start := tbl.Register(Key{Plane: 1, Ordinal: 3}, "orbit")
	if !fired {
		t.Fatal("barrier did not fire at target")
	}
	if start.IsZero() {
		t.Fatal("start time not latched")
	}
}

func TestReRegistrationDoesNotRefireOrChangeStart(t *testing.T) {
	tbl := NewTable(1)

	fired, start1 := tbl.Register(Key{Plane: 1, Ordinal: 1}, "orbit")
	if !fired {
		t.Fatal("expected barrier to fire on first registration of sole target")
	}

	fired2, start2 := tbl.Register(Key{Plane: 1, Ordinal: 1}, "orbit")
	if fired2 {
		t.Fatal("re-registration must not re-fire the barrier")
	}
	if !start2.Equal(start1) {
		t.Fatalf("start time changed on re-registration: %v -> %v", start1, start2)
	}
}

func TestRegistrationAfterCompleteDoesNotChangeStart(t *testing.T) {
	tbl := NewTable(1)
	_, start1 := tbl.Register(Key{Plane: 1, Ordinal: 1}, "orbit")

	// A distinct key arriving after the barrier already fired (e.g. a
	// stray extra worker) must not move the latched start time.
	fired, start2 := tbl.Register(Key{Plane: 1, Ordinal: 2}, "orbit")
	if fired {
		t.Fatal("barrier must not fire twice")
	}
	if !start2.Equal(start1) {
		t.Fatalf("start time changed after barrier already fired: %v -> %v", start1, start2)
	}
}

func TestStopMutatesBeforeCallerCanObservePublish(t *testing.T) {
	tbl := NewTable(2)
	tbl.Register(Key{Plane: 1, Ordinal: 1}, "orbit")

	tbl.Stop()
	snap := tbl.Snapshot()
	if !snap.Stopped {
		t.Fatal("expected table to report stopped immediately after Stop()")
	}
	if len(snap.Workers) != 0 {
		t.Fatalf("expected workers cleared after Stop(), got %v", snap.Workers)
	}
}
