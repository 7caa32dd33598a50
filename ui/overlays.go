package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Standard overlay IDs.
const (
	OverlayDangerZone    OverlayID = "danger_zone"
	OverlayCountdown     OverlayID = "countdown"
	OverlaySpeciesColors OverlayID = "species_colors"
	OverlayPerception    OverlayID = "perception"
	OverlayWrapGhosts    OverlayID = "wrap_ghosts"
	OverlaySpeciesPanel  OverlayID = "species_panel"
	OverlayPerf          OverlayID = "perf"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID       OverlayID
	Name     string
	Key      int32  // 0 = no key
	KeyLabel string // e.g. "S"
	Category string // "world" or "panels"
	Default  bool   // enabled at startup
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with default overlays.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.registerDefaults()
	return reg
}

func (r *OverlayRegistry) registerDefaults() {
	r.Register(OverlayDescriptor{ID: OverlayDangerZone, Name: "Danger Zone", Key: rl.KeyZ, KeyLabel: "Z", Category: "world", Default: true})
	r.Register(OverlayDescriptor{ID: OverlayCountdown, Name: "Epoch Countdown", Key: rl.KeyC, KeyLabel: "C", Category: "world", Default: true})
	r.Register(OverlayDescriptor{ID: OverlaySpeciesColors, Name: "Species Colors", Key: rl.KeyS, KeyLabel: "S", Category: "world", Default: true})
	r.Register(OverlayDescriptor{ID: OverlayPerception, Name: "Perception", Key: rl.KeyV, KeyLabel: "V", Category: "world"})
	r.Register(OverlayDescriptor{ID: OverlayWrapGhosts, Name: "Wrap Ghosts", Key: rl.KeyG, KeyLabel: "G", Category: "world", Default: true})

	r.Register(OverlayDescriptor{ID: OverlaySpeciesPanel, Name: "Species", Key: rl.KeyN, KeyLabel: "N", Category: "panels", Default: true})
	r.Register(OverlayDescriptor{ID: OverlayPerf, Name: "Performance", Key: rl.KeyF3, KeyLabel: "F3", Category: "panels"})
}

// Register adds an overlay to the registry.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.enabled[desc.ID] = desc.Default
}

// Toggle switches an overlay on/off and returns the new state.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	r.enabled[id] = !r.enabled[id]
	return r.enabled[id]
}

// SetEnabled explicitly sets an overlay's state.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	if _, ok := r.byID[id]; !ok {
		return
	}
	r.enabled[id] = enabled
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// All returns all registered overlays in registration order.
func (r *OverlayRegistry) All() []OverlayDescriptor {
	return r.descriptors
}

// ByCategory returns overlays filtered by category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			result = append(result, desc)
		}
	}
	return result
}

// HandleKeyPress toggles the overlay bound to key.
// Returns the overlay ID, its new state and whether a toggle occurred.
func (r *OverlayRegistry) HandleKeyPress(key int32) (OverlayID, bool, bool) {
	for _, desc := range r.descriptors {
		if desc.Key == key {
			return desc.ID, r.Toggle(desc.ID), true
		}
	}
	return "", false, false
}
