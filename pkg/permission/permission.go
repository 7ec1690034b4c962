// Package permission derives the effective permission status stamped on every
// block and gates rendering against it.
package permission

import (
	"github.com/goliatone/go-formblocks/pkg/block"
)

// Unrestricted is the status applied when permission gating is disabled.
const Unrestricted block.Level = 100

// ShowAdmin is the Show value that exposes administrator-level blocks.
const ShowAdmin = "admin"

// DefaultConfigStatus is the status of config-driven forms that set none.
const DefaultConfigStatus = block.LevelAdmin

// Status derives the permission status for a block. With gating disabled the
// status is Unrestricted. With gating enabled, admin viewers receive the
// server level unchanged while every other viewer has the privileged levels
// (super-administrator and administrator) raised to the first user level.
func Status(gate bool, show string, server block.Level) block.Level {
	if !gate {
		return Unrestricted
	}
	if show == ShowAdmin {
		return server
	}
	switch server {
	case block.LevelSuperAdmin, block.LevelAdmin:
		return block.LevelUser
	default:
		return server
	}
}

// Allows reports whether a block passes its permission gate.
func Allows(b block.Block) bool {
	return b.Permission >= b.PermissionStatus
}

// Stamp returns a copy of blocks with PermissionStatus set from Status.
func Stamp(blocks []block.Block, gate bool, show string, server block.Level) []block.Block {
	return StampStatus(blocks, Status(gate, show, server))
}

// StampStatus returns a copy of blocks with PermissionStatus set to status.
func StampStatus(blocks []block.Block, status block.Level) []block.Block {
	out := make([]block.Block, len(blocks))
	for i, b := range blocks {
		b.PermissionStatus = status
		out[i] = b
	}
	return out
}
