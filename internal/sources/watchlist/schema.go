package watchlist

// SubscriberEntry represents one subscriber block in the YAML
type SubscriberEntry struct {
	ID    string   `yaml:"id"`
	Terms []string `yaml:"terms"`
}

// Config is the root structure for watchlist.yaml
type Config struct {
	Subscribers []SubscriberEntry `yaml:"subscribers"`
}
