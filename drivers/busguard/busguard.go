// Package busguard serializes the shared SPI bus between the dataflash
// and the secondary-storage card. Exactly one peripheral may have its
// chip select asserted; selecting one always deselects the other
// first. A forgotten deselect corrupts the next transfer's addressing,
// so callers go through select handles instead of raw pin writes.
package busguard

import "sync"

// Owner identifies who holds the bus.
type Owner uint8

const (
	None Owner = iota
	Flash
	Storage
)

func (o Owner) String() string {
	switch o {
	case Flash:
		return "flash"
	case Storage:
		return "storage"
	default:
		return "none"
	}
}

// Output is a chip-select line. Set drives the electrical level; both
// selects here are active-low.
type Output interface {
	Set(level bool)
}

type Guard struct {
	mu      sync.Mutex
	flash   Output
	storage Output
	owner   Owner
}

// New wires the two select lines and leaves both deselected.
func New(flashCS, storageCS Output) *Guard {
	g := &Guard{flash: flashCS, storage: storageCS}
	flashCS.Set(true)
	storageCS.Set(true)
	return g
}

// Owner reports the current bus holder.
func (g *Guard) Owner() Owner {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}

// acquire asserts the select for o, releasing any other holder first.
func (g *Guard) acquire(o Owner) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner == o {
		return
	}
	switch g.owner {
	case Flash:
		g.flash.Set(true)
	case Storage:
		g.storage.Set(true)
	}
	switch o {
	case Flash:
		g.flash.Set(false)
	case Storage:
		g.storage.Set(false)
	}
	g.owner = o
}

// release deasserts o's select if o still holds the bus.
func (g *Guard) release(o Owner) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner != o {
		return
	}
	switch o {
	case Flash:
		g.flash.Set(true)
	case Storage:
		g.storage.Set(true)
	}
	g.owner = None
}

// Select is a per-peripheral handle satisfying the drivers' ChipSelect
// contract.
type Select struct {
	g *Guard
	o Owner
}

// Handle returns the select handle for a peripheral.
func (g *Guard) Handle(o Owner) *Select { return &Select{g: g, o: o} }

// Set asserts (active=true) or releases the peripheral's select.
func (s *Select) Set(active bool) error {
	if active {
		s.g.acquire(s.o)
	} else {
		s.g.release(s.o)
	}
	return nil
}
