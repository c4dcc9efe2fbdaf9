// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Entry is one manifest record: a logical file path and the content it must hold.
type Entry struct {
	// Path is the forward-slash separated path relative to the output root
	// (e.g. "minecraft/sounds/ambient/cave/cave1.ogg").
	Path string `json:"path" yaml:"path"`

	// Hash is the hex digest naming the object in the store. Case is preserved.
	Hash string `json:"hash" yaml:"hash"`

	// Size is the expected byte length of the object.
	Size int64 `json:"size" yaml:"size"`
}

// Manifest is the ordered set of entries loaded from a manifest document.
// Entries appear in document order.
type Manifest struct {
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

// TotalSize returns the sum of declared entry sizes.
func (m *Manifest) TotalSize() int64 {
	if m == nil {
		return 0
	}
	var n int64
	for _, e := range m.Entries {
		n += e.Size
	}
	return n
}
