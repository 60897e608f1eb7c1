package dedupe

type options struct {
	existing []Identity
	exclude  string
}

// Option configures NewIndex.
type Option func(*options)

// WithExisting seeds the index with the event's stored players.
func WithExisting(players []Identity) Option {
	return func(o *options) {
		o.existing = append(o.existing, players...)
	}
}

// WithExclude leaves the player being edited out of the seed set.
func WithExclude(playerID string) Option {
	return func(o *options) {
		o.exclude = playerID
	}
}
