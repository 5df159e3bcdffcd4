package client

import "fmt"

// State is where a client is in the join sequence.
type State int

const (
	Disconnected State = iota
	Connected
	Joining
	Joined
	Spawning
	Ready
)

var stateNames = [...]string{"disconnected", "connected", "joining", "joined", "spawning", "ready"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is what a successful join leaves behind. A new join replaces it
// rather than updating it.
type Session struct {
	Code           string
	Number         int32
	PlayerClientID uint32
	HostClientID   uint32
}
