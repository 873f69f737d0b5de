package watchlist

import (
	"fmt"
	"strings"
)

// Watch is one (subscriber, term) pair to register.
type Watch struct {
	SubscriberID string
	Term         string
}

// Mapper converts the watchlist config to registrable watches
type Mapper struct{}

// NewMapper creates a new watchlist mapper
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapWatches flattens the config into (subscriber, term) pairs. Terms are
// trimmed but otherwise kept exactly as written: "Kolo" and "kolo" are
// distinct searches. Exact duplicates within a subscriber collapse to one
// watch.
func (m *Mapper) MapWatches(config *Config) ([]Watch, error) {
	watches := make([]Watch, 0)

	for _, sub := range config.Subscribers {
		id := strings.TrimSpace(sub.ID)
		if id == "" {
			return nil, fmt.Errorf("subscriber entry with empty id")
		}

		seen := make(map[string]bool, len(sub.Terms))
		for _, raw := range sub.Terms {
			term := strings.TrimSpace(raw)
			if term == "" || seen[term] {
				continue
			}
			seen[term] = true
			watches = append(watches, Watch{SubscriberID: id, Term: term})
		}
	}

	if len(watches) == 0 {
		return nil, fmt.Errorf("no valid watches found in config")
	}

	return watches, nil
}
