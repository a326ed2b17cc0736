package arena

// Addr is an opaque buffer address. Addr 0 is never issued.
type Addr uint32

// EventType identifies an arena lifecycle event.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventFreed
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventFreed:
		return "freed"
	default:
		return "unknown"
	}
}

// Event describes one allocation or release.
type Event struct {
	Addr Addr
	Size uint32
	Live int
	Type EventType
}

// Observer receives notifications about arena lifecycle events.
type Observer interface {
	OnArenaEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnArenaEvent calls f(e).
func (f ObserverFunc) OnArenaEvent(e Event) {
	f(e)
}

// Backing provides the memory behind arena records.
type Backing interface {
	// Reserve returns a buffer of exactly size bytes and the address of its
	// first byte. The address must not collide with any live reservation,
	// including zero-sized ones.
	Reserve(size uint32) (Addr, []byte, error)
}
