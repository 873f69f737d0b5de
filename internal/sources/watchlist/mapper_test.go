package watchlist

import "testing"

func TestMapper_MapWatches(t *testing.T) {
	// Case matters: "Kolo" and "kolo" are distinct searches. Only exact
	// duplicates (after trimming) collapse.
	config := &Config{
		Subscribers: []SubscriberEntry{
			{ID: "alice", Terms: []string{"Kolo", "kolo", " kolo ", "stul"}},
			{ID: "bob", Terms: []string{"gramofon", ""}},
		},
	}

	watches, err := NewMapper().MapWatches(config)
	if err != nil {
		t.Fatalf("MapWatches failed: %v", err)
	}

	want := []Watch{
		{SubscriberID: "alice", Term: "Kolo"},
		{SubscriberID: "alice", Term: "kolo"},
		{SubscriberID: "alice", Term: "stul"},
		{SubscriberID: "bob", Term: "gramofon"},
	}
	if len(watches) != len(want) {
		t.Fatalf("got %d watches, want %d: %v", len(watches), len(want), watches)
	}
	for i, w := range want {
		if watches[i] != w {
			t.Errorf("watch %d = %+v, want %+v", i, watches[i], w)
		}
	}
}

func TestMapper_MapWatchesEmptyID(t *testing.T) {
	config := &Config{
		Subscribers: []SubscriberEntry{{ID: "  ", Terms: []string{"kolo"}}},
	}
	if _, err := NewMapper().MapWatches(config); err == nil {
		t.Fatal("expected error for empty subscriber id")
	}
}

func TestMapper_MapWatchesNoValidTerms(t *testing.T) {
	config := &Config{
		Subscribers: []SubscriberEntry{{ID: "alice", Terms: []string{"", "  "}}},
	}
	if _, err := NewMapper().MapWatches(config); err == nil {
		t.Fatal("expected error when no watch survives normalization")
	}
}
