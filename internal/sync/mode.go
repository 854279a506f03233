package sync

// Mode selects how the remote snapshot is reconciled with local state.
type Mode string

const (
	// ModeMerge keeps local-only items that were never synced out and
	// honours deletion tombstones.
	ModeMerge Mode = "merge"

	// ModeRestore treats the service layout as authoritative.
	ModeRestore Mode = "restore"
)

// IsValid returns true if the mode is recognized.
func (m Mode) IsValid() bool {
	switch m {
	case ModeMerge, ModeRestore:
		return true
	default:
		return false
	}
}

// CopyServiceLayout reports whether the mode mirrors the service layout.
func (m Mode) CopyServiceLayout() bool {
	return m == ModeRestore
}

// AllModes returns all supported modes.
func AllModes() []Mode {
	return []Mode{ModeMerge, ModeRestore}
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m Mode) Description() string {
	switch m {
	case ModeMerge:
		return "Merge service changes, keeping local-only and deleted items as they are"
	case ModeRestore:
		return "Make the local layout an exact copy of the service layout"
	default:
		return "Unknown mode"
	}
}

// Direction names a synchronisation direction.
type Direction string

const (
	DirectionIn   Direction = "in"
	DirectionOut  Direction = "out"
	DirectionFull Direction = "full"
)

// IsValid returns true if the direction is recognized.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionIn, DirectionOut, DirectionFull:
		return true
	default:
		return false
	}
}

// String returns the string representation of the direction.
func (d Direction) String() string {
	return string(d)
}
