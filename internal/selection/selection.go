// Package selection decides what a spin lands on. All operations are
// pure over an AssetItem list and honor the per-item enabled mask; a
// fully disabled pool falls back to the whole list so a spin always
// produces an outcome when any item exists.
package selection

import (
	"math/rand"

	"github.com/DoyleJ11/overlay-relay/internal/catalog"
)

// intn is a seam for deterministic draws in tests.
var intn = rand.Intn

// Plan is the outcome of one spin. It is computed exactly once per
// spin request and carried opaquely inside a command payload, so every
// display that receives the command agrees on the same outcome.
type Plan struct {
	LegendID  string `json:"legendId,omitempty"`
	Weapon1ID string `json:"weapon1Id,omitempty"`
	Weapon2ID string `json:"weapon2Id,omitempty"`
}

// NewPlan draws one legend and two distinct weapons.
func NewPlan(legends, weapons []catalog.AssetItem) Plan {
	var p Plan
	if it, ok := PickOne(legends); ok {
		p.LegendID = it.SourceID
	}
	if a, b, ok := PickTwoDistinct(weapons); ok {
		p.Weapon1ID = a.SourceID
		p.Weapon2ID = b.SourceID
	}
	return p
}

// PickOne returns one item chosen uniformly from the enabled pool.
// ok is false only when items itself is empty.
func PickOne(items []catalog.AssetItem) (catalog.AssetItem, bool) {
	pool := enabledPool(items)
	if len(pool) == 0 {
		return catalog.AssetItem{}, false
	}
	return pool[intn(len(pool))], true
}

// PickTwoDistinct returns two items at distinct indices, uniform over
// all ordered pairs of distinct indices. A single-element pool returns
// that element twice; an empty list returns ok false.
func PickTwoDistinct(items []catalog.AssetItem) (first, second catalog.AssetItem, ok bool) {
	pool := enabledPool(items)
	switch len(pool) {
	case 0:
		return catalog.AssetItem{}, catalog.AssetItem{}, false
	case 1:
		return pool[0], pool[0], true
	}

	i := intn(len(pool))
	// Draw the second index from [0, n-1) and shift it past the first,
	// which keeps the pair distinct without rejection sampling.
	j := intn(len(pool) - 1)
	if j >= i {
		j++
	}
	return pool[i], pool[j], true
}

// enabledPool filters to enabled items, falling back to the full list
// when the user disabled everything.
func enabledPool(items []catalog.AssetItem) []catalog.AssetItem {
	pool := make([]catalog.AssetItem, 0, len(items))
	for _, it := range items {
		if it.Enabled {
			pool = append(pool, it)
		}
	}
	if len(pool) == 0 {
		return items
	}
	return pool
}

// Mask pairs an item with the user's manual toggle and an optional
// side attribute (a secondary binary grouping such as a faction).
// EnabledUser survives side-filter changes, so switching the active
// filter never loses manual exclusions.
type Mask struct {
	Item        catalog.AssetItem
	EnabledUser bool
	Side        string
}

// NewMasks seeds masks from a freshly scanned pool, reading the
// initial toggle off each item. side may be nil when the pool has no
// secondary attribute.
func NewMasks(items []catalog.AssetItem, side func(catalog.AssetItem) string) []Mask {
	masks := make([]Mask, len(items))
	for i, it := range items {
		m := Mask{Item: it, EnabledUser: it.Enabled}
		if side != nil {
			m.Side = side(it)
		}
		masks[i] = m
	}
	return masks
}

// ApplySide recomputes each item's effective enabled flag as
// EnabledUser AND matches-active-side. An empty side means no filter.
func ApplySide(masks []Mask, side string) {
	for i := range masks {
		masks[i].Item.Enabled = masks[i].EnabledUser &&
			(side == "" || masks[i].Side == side)
	}
}

// Items extracts the effective pool for the pick functions.
func Items(masks []Mask) []catalog.AssetItem {
	items := make([]catalog.AssetItem, len(masks))
	for i, m := range masks {
		items[i] = m.Item
	}
	return items
}
