package jsonrepo

import "context"

// errSeq is a store.Seq[T] that immediately fails with err — used when the
// underlying index read itself failed, so the caller's CollectSeq surfaces
// the real error instead of silently returning an empty sequence.
type errSeq[T any] struct {
	err error
}

func (e errSeq[T]) Next(context.Context) (T, bool, error) {
	var zero T
	return zero, false, e.err
}
