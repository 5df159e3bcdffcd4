//go:build debug

package channel

// New ignores size: every send waits for its receiver, so a lagging
// payload or event consumer stalls the producer where it can be seen.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
