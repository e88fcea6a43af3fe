// Package catalog describes the supported-algorithms catalog the core
// consumes from the (out-of-scope) configuration subsystem. It is a plain,
// caller-populated struct -- the core never reads configuration files or env
// vars itself, matching the teacher's Config type in config.go which is
// populated by its caller and only exposes pure query methods.
package catalog

import "github.com/vpiscitello/brypt-node-sub000/security"

// LevelEntry lists the algorithm names a single confidentiality level offers,
// in declared order (the order a proposal or selection should prefer).
type LevelEntry struct {
	Agreements []string
	Ciphers    []string
	Hashes     []string
}

// Catalog maps confidentiality level to its offered algorithm lists. It
// supports iteration from low to high, matching spec.md section 6.3.
type Catalog struct {
	levels map[security.Level]LevelEntry
	order  []security.Level
}

// New builds a Catalog from level entries. Levels are always stored
// low-to-high, whatever the map holds; levels absent from entries are
// omitted.
func New(entries map[security.Level]LevelEntry) *Catalog {
	c := &Catalog{levels: make(map[security.Level]LevelEntry, len(entries))}
	for _, lvl := range []security.Level{security.LevelLow, security.LevelMedium, security.LevelHigh} {
		if entry, ok := entries[lvl]; ok {
			c.levels[lvl] = entry
			c.order = append(c.order, lvl)
		}
	}
	return c
}

// Levels returns the catalog's levels in low-to-high order.
func (c *Catalog) Levels() []security.Level { return c.order }

// Entry returns the algorithm lists for level.
func (c *Catalog) Entry(level security.Level) (LevelEntry, bool) {
	e, ok := c.levels[level]
	return e, ok
}

// LevelOfAgreement returns the level at which name is offered as a
// key-agreement, scanning low to high order. Returns false if no level
// offers it.
func (c *Catalog) LevelOfAgreement(name string) (security.Level, bool) {
	return c.levelOf(name, func(e LevelEntry) []string { return e.Agreements })
}

// LevelOfCipher returns the level at which name is offered as a cipher.
func (c *Catalog) LevelOfCipher(name string) (security.Level, bool) {
	return c.levelOf(name, func(e LevelEntry) []string { return e.Ciphers })
}

// LevelOfHash returns the level at which name is offered as a hash.
func (c *Catalog) LevelOfHash(name string) (security.Level, bool) {
	return c.levelOf(name, func(e LevelEntry) []string { return e.Hashes })
}

func (c *Catalog) levelOf(name string, pick func(LevelEntry) []string) (security.Level, bool) {
	for _, lvl := range c.order {
		for _, candidate := range pick(c.levels[lvl]) {
			if candidate == name {
				return lvl, true
			}
		}
	}
	return 0, false
}

// AllAgreements returns every key-agreement name across all levels, in
// catalog (level, then declared) order -- used to build the initiator's
// proposal frame.
func (c *Catalog) AllAgreements() []string { return c.all(func(e LevelEntry) []string { return e.Agreements }) }

// AllCiphers returns every cipher name across all levels.
func (c *Catalog) AllCiphers() []string { return c.all(func(e LevelEntry) []string { return e.Ciphers }) }

// AllHashes returns every hash name across all levels.
func (c *Catalog) AllHashes() []string { return c.all(func(e LevelEntry) []string { return e.Hashes }) }

func (c *Catalog) all(pick func(LevelEntry) []string) []string {
	var out []string
	for _, lvl := range c.order {
		out = append(out, pick(c.levels[lvl])...)
	}
	return out
}

// FirstMatch returns the first name in candidates (catalog order) that also
// appears in offered, implementing the acceptor's deterministic selection
// rule: catalog preference first, peer's ordering is irrelevant.
func FirstMatch(candidates, offered []string) (string, bool) {
	offeredSet := make(map[string]struct{}, len(offered))
	for _, o := range offered {
		offeredSet[o] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := offeredSet[c]; ok {
			return c, true
		}
	}
	return "", false
}
