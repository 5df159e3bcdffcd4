// Package channel provides generic channel wrappers used to hand decoded
// datagrams and events between goroutines.
package channel

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T)
	// TrySend delivers v only if that would not block.
	TrySend(T) bool
	// SendUntil blocks until v is delivered or done is closed.
	SendUntil(v T, done <-chan struct{}) bool
}

// Channel combines read and write access. Only the sending side may Close.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}
