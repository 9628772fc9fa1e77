package reconcile

import "golang.org/x/sync/singleflight"

// Flight coalesces concurrent runs sharing a key: callers arriving while a run is
// in progress wait for it and receive its result.
type Flight[T any] struct {
	sf singleflight.Group
}

// Do runs fn once per key at a time. shared reports whether the result was
// produced for another caller too.
func (f *Flight[T]) Do(key string, fn func() (T, error)) (v T, shared bool, err error) {
	out, err, shared := f.sf.Do(key, func() (interface{}, error) {
		return fn()
	})
	if out != nil {
		v = out.(T)
	}
	return v, shared, err
}
