package docscan

import "testing"

func TestProgressForwardOnly(t *testing.T) {
	p := NewProgress(nil)
	if !p.Advance(StateUploading) {
		t.Fatalf("forward advance refused")
	}
	if !p.Advance(StateScanning) {
		t.Fatalf("skipping states should be allowed")
	}
	if p.Advance(StateConverting) {
		t.Fatalf("backward advance accepted")
	}
	if p.State() != StateScanning {
		t.Fatalf("backward advance mutated state: %s", p.State())
	}
}

func TestProgressReset(t *testing.T) {
	p := NewProgress(nil)
	p.Advance(StateComplete)
	p.Reset()
	if p.State() != StateIdle {
		t.Fatalf("expected idle after reset got %s", p.State())
	}
	if !p.Advance(StateUploading) {
		t.Fatalf("advance after reset refused")
	}
}

func TestProgressPercentClamped(t *testing.T) {
	var last float64
	p := NewProgress(func(_ State, pct float64) { last = pct })
	p.SetPercent(150)
	if last != 100 {
		t.Fatalf("expected clamp to 100 got %v", last)
	}
	p.SetPercent(-5)
	if last != 0 {
		t.Fatalf("expected clamp to 0 got %v", last)
	}
}

func TestStateStrings(t *testing.T) {
	want := map[State]string{
		StateIdle: "idle", StateUploading: "uploading", StateConverting: "converting",
		StateScanning: "scanning", StateExtracting: "extracting", StateReview: "review",
		StateComplete: "complete",
	}
	for st, s := range want {
		if st.String() != s {
			t.Fatalf("state %d: expected %q got %q", st, s, st.String())
		}
	}
}
