package state

// Integer constrains the relay arithmetic helpers to integral types.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Increment atomically adds 1 and returns the new value.
func Increment[V Integer](r Relay[V]) V {
	return r.Update(func(v V) V { return v + 1 })
}

// Decrement atomically subtracts 1 and returns the new value.
func Decrement[V Integer](r Relay[V]) V {
	return r.Update(func(v V) V { return v - 1 })
}

// AddDelta atomically adds delta and returns the new value.
func AddDelta[V Integer](r Relay[V], delta V) V {
	return r.Update(func(v V) V { return v + delta })
}

// Append atomically appends item to a sequence-typed relay.
func Append[T any](r Relay[[]T], item T) []T {
	return r.Update(func(s []T) []T { return append(s, item) })
}

// AppendAll atomically appends items to a sequence-typed relay.
func AppendAll[T any](r Relay[[]T], items []T) []T {
	return r.Update(func(s []T) []T { return append(s, items...) })
}

// Clear atomically empties a sequence-typed relay.
func Clear[T any](r Relay[[]T]) {
	r.Set(nil)
}

// Set-typed values are represented as map[T]struct{}.

// Contains reports whether item is present in a set-typed relay. The
// membership test runs under the cell lock; indexing the map returned
// by Get would race with Insert/Remove mutating it in place.
func Contains[T comparable](r Relay[map[T]struct{}], item T) bool {
	var ok bool
	r.c.read(func(m map[T]struct{}) {
		_, ok = m[item]
	})
	return ok
}

// Insert atomically adds item to a set-typed relay.
func Insert[T comparable](r Relay[map[T]struct{}], item T) {
	r.Update(func(m map[T]struct{}) map[T]struct{} {
		if m == nil {
			m = make(map[T]struct{}, 1)
		}
		m[item] = struct{}{}
		return m
	})
}

// Remove atomically deletes item from a set-typed relay.
func Remove[T comparable](r Relay[map[T]struct{}], item T) {
	r.Update(func(m map[T]struct{}) map[T]struct{} {
		delete(m, item)
		return m
	})
}

// FormUnion atomically merges other into a set-typed relay.
func FormUnion[T comparable](r Relay[map[T]struct{}], other map[T]struct{}) {
	r.Update(func(m map[T]struct{}) map[T]struct{} {
		if m == nil {
			m = make(map[T]struct{}, len(other))
		}
		for k := range other {
			m[k] = struct{}{}
		}
		return m
	})
}
