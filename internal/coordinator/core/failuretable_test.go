package core

import (
	"reflect"
	"testing"
)

func TestFailureTable_OnDataError_BlacklistsNodeAndPrunesVariant(t *testing.T) {
	partitions := []Partition{
		{ID: 0, Variants: []Variant{{URI: "http://h1/x"}, {URI: "http://h2/x"}}},
	}
	ft := NewFailureTable()
	ft.Init(partitions)

	rec := ft.OnDataError(0, "http://h1/x", "h1")

	if !reflect.DeepEqual(rec.Blacklist, []string{"h1"}) {
		t.Errorf("blacklist = %v, want [h1]", rec.Blacklist)
	}
	if len(rec.RemainingInputs) != 1 || rec.RemainingInputs[0].URI != "http://h2/x" {
		t.Errorf("remaining inputs = %v, want only http://h2/x", rec.RemainingInputs)
	}
}

func TestFailureTable_OnDataError_LastResortKeepsSoleVariant(t *testing.T) {
	partitions := []Partition{
		{ID: 0, Variants: []Variant{{URI: "http://h1/x"}}},
	}
	ft := NewFailureTable()
	ft.Init(partitions)

	rec := ft.OnDataError(0, "http://h1/x", "h1")

	if len(rec.RemainingInputs) != 1 || rec.RemainingInputs[0].URI != "http://h1/x" {
		t.Errorf("remaining inputs = %v, want the sole variant preserved", rec.RemainingInputs)
	}
	if rec.Blacklist[0] != "h1" {
		t.Errorf("blacklist = %v, want [h1]", rec.Blacklist)
	}
}

func TestFailureTable_BlacklistSize(t *testing.T) {
	partitions := []Partition{
		{ID: 0, Variants: []Variant{{URI: "http://h1/x"}, {URI: "http://h2/x"}, {URI: "http://h3/x"}}},
	}
	ft := NewFailureTable()
	ft.Init(partitions)

	ft.OnDataError(0, "http://h1/x", "h1")
	ft.OnDataError(0, "http://h2/x", "h2")

	if got := ft.BlacklistSize(0); got != 2 {
		t.Errorf("BlacklistSize = %d, want 2", got)
	}
}

func TestFailureTable_OnDataError_DuplicateNodeNotReblacklisted(t *testing.T) {
	partitions := []Partition{
		{ID: 0, Variants: []Variant{{URI: "http://h1/x"}, {URI: "http://h1/y"}}},
	}
	ft := NewFailureTable()
	ft.Init(partitions)

	ft.OnDataError(0, "http://h1/x", "h1")
	rec := ft.OnDataError(0, "http://h1/y", "h1")

	if len(rec.Blacklist) != 1 {
		t.Errorf("blacklist = %v, want a single h1 entry", rec.Blacklist)
	}
}
