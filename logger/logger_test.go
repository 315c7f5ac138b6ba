package logger

import "testing"

func TestNewBuildsLogger(t *testing.T) {
	l, err := New("info")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	l.Info("hello", String("k", "v"))
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("shouting"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
