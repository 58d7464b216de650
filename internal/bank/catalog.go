// Package bank loads OPL instrument definitions from DMX OP2 and WOPL3 bank
// files into a lookup catalog keyed by (kind, bank, program).
package bank

import (
	"fmt"
	"sync"

	"midi2imf/internal/opl"
)

// ID identifies one instrument slot in a catalog: its kind (melodic vs.
// percussion), its MIDI bank number (0 for melodic instruments that never
// changed banks), and its program/note number.
type ID struct {
	Kind    opl.Kind
	Bank    int
	Program int
}

// Catalog is a lookup table of instruments keyed by ID, with bank-0 fallback
// when a requested (kind, bank, program) has no exact entry.
type Catalog struct {
	mu      sync.Mutex
	entries map[ID]opl.Instrument
	warned  map[ID]bool
	onWarn  func(msg string)
}

// New returns an empty Catalog. onWarn, if non-nil, is called at most once
// per missing ID the first time a fallback or miss occurs for it.
func New(onWarn func(msg string)) *Catalog {
	return &Catalog{
		entries: make(map[ID]opl.Instrument),
		warned:  make(map[ID]bool),
		onWarn:  onWarn,
	}
}

// Add inserts or replaces the instrument at id.
func (c *Catalog) Add(id ID, inst opl.Instrument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = inst
}

// Len reports how many instruments are loaded.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Get looks up the instrument for id. If id.Bank is nonzero and no entry
// exists for it, Get retries with Bank 0 before giving up. A warning is
// logged (once per distinct id) whenever the fallback is used or the lookup
// fails outright.
func (c *Catalog) Get(id ID) (opl.Instrument, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if inst, ok := c.entries[id]; ok {
		return inst, true
	}
	if id.Bank != 0 {
		fallback := ID{Kind: id.Kind, Bank: 0, Program: id.Program}
		if inst, ok := c.entries[fallback]; ok {
			c.warnOnce(id, fmt.Sprintf("no instrument for %s bank %d program %d, falling back to bank 0", id.Kind, id.Bank, id.Program))
			return inst, true
		}
	}
	c.warnOnce(id, fmt.Sprintf("no instrument for %s bank %d program %d", id.Kind, id.Bank, id.Program))
	return opl.Instrument{}, false
}

func (c *Catalog) warnOnce(id ID, msg string) {
	if c.warned[id] {
		return
	}
	c.warned[id] = true
	if c.onWarn != nil {
		c.onWarn(msg)
	}
}
