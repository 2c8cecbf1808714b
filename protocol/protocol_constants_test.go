package protocol

import (
	"testing"
	"time"
)

func TestMessageConstants(t *testing.T) {
	if MsgJoin != "join" {
		t.Fatalf("MsgJoin = %q, want %q", MsgJoin, "join")
	}
	if MsgInput != "input" {
		t.Fatalf("MsgInput = %q, want %q", MsgInput, "input")
	}
	if MsgSnapshot != "snapshot" {
		t.Fatalf("MsgSnapshot = %q, want %q", MsgSnapshot, "snapshot")
	}
	if MsgHello != "hello" {
		t.Fatalf("MsgHello = %q, want %q", MsgHello, "hello")
	}
}

func TestTimingSanity(t *testing.T) {
	if FrameHz <= 0 || InputHz <= 0 || SnapshotHz <= 0 {
		t.Fatalf("timing constants must be > 0")
	}
	if SnapshotHz > FrameHz || InputHz > FrameHz {
		t.Fatalf("network rates faster than the frame rate: snapshot=%d input=%d frame=%d", SnapshotHz, InputHz, FrameHz)
	}
	if got := Period(SnapshotHz); got != time.Second/12 {
		t.Fatalf("Period(12) = %v", got)
	}
	if Period(0) != 0 {
		t.Fatalf("Period(0) should be 0")
	}
}
