package config

// Backend is the platform's persistent key/value store for non-secret
// settings. Values are kept as strings and parsed per key on load.
type Backend interface {
	Get(key string) (val string, ok bool, err error)
	Set(key, val string) error
	Delete(key string) error
}
