package core

import (
	"reflect"
	"testing"
)

func TestResultBag_DedupesAndSorts(t *testing.T) {
	b := NewResultBag()
	b.Add("r2")
	b.Add("r1")
	b.Add("r2")

	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
	if got := b.Snapshot(); !reflect.DeepEqual(got, []string{"r1", "r2"}) {
		t.Errorf("Snapshot = %v, want [r1 r2]", got)
	}
}
