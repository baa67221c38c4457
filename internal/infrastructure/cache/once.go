package cache

import "sync"

// Once memoizes a zero-argument constructor. The first successful result
// is returned to every later call; a failed construction is retried on
// the next call.
func Once[T any](ctor func() (T, error)) func() (T, error) {
	var (
		mu    sync.Mutex
		done  bool
		value T
	)
	return func() (T, error) {
		mu.Lock()
		defer mu.Unlock()

		if done {
			return value, nil
		}
		v, err := ctor()
		if err != nil {
			var zero T
			return zero, err
		}
		value, done = v, true
		return value, nil
	}
}
