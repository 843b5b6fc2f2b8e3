package cache

// DiskTier is the durable tier. Update runs fn on the current mapping of a
// class under the tier's lock; the mapping is written back when fn reports
// a change.
type DiskTier interface {
	Load(class Class) (map[string]Entry, error)
	Update(class Class, fn func(entries map[string]Entry) (changed bool)) error
	Clear(class Class) error
	Close() error
}
