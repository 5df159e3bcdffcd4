//go:build !debug

package channel

// New creates a new channel with the given buffer size.
// Builds with the debug tag get an unbuffered channel instead, which makes
// slow consumers show up as stalls on the producing side.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
