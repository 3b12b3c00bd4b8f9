// SPDX-License-Identifier: MPL-2.0

package reconcile

import "github.com/strata-dev/strata/pkg/types"

// State classifies a target file before reconciliation.
type State int

const (
	// StateAbsent means no file exists at the target path.
	StateAbsent State = iota
	// StateUntracked means a file exists but the manifest has no hash for it.
	StateUntracked
	// StateSynced means the file on disk still matches the recorded hash.
	StateSynced
	// StateUserModified means the file diverged from the recorded hash.
	StateUserModified
)

// Action is the outcome of a reconciliation decision.
type Action int

const (
	// ActionWrite replaces the target with the new content.
	ActionWrite Action = iota
	// ActionSkip leaves the target alone because it already holds the new content.
	ActionSkip
	// ActionPreserve leaves a user-modified target untouched.
	ActionPreserve
)

type (
	// Input carries the hashes a decision is made from.
	Input struct {
		// IsUpdate is false on a first installation.
		IsUpdate bool
		// OnDisk reports whether the target exists; DiskHash is only read when it does.
		OnDisk   bool
		DiskHash types.ContentHash
		// Tracked reports whether the manifest has a hash; TrackedHash is only read when it does.
		Tracked     bool
		TrackedHash types.ContentHash
		NewHash     types.ContentHash
	}

	// Decision is the result of Decide.
	Decision struct {
		State  State
		Action Action
		// Record is true when the manifest must store NewHash for the path.
		// It is false only for preserved user edits, whose recorded hash must
		// stay put so the divergence is detected again on the next run.
		Record bool
	}
)

// Classify returns the state of a target from its tracked and on-disk hashes.
func Classify(tracked bool, trackedHash types.ContentHash, onDisk bool, diskHash types.ContentHash) State {
	switch {
	case !onDisk:
		return StateAbsent
	case !tracked:
		return StateUntracked
	case diskHash == trackedHash:
		return StateSynced
	default:
		return StateUserModified
	}
}

// Decide applies the reconciliation rules:
//
//   - first install or absent target: write
//   - untracked target: adopt it (write, record)
//   - synced target: write the new content
//   - user-modified target: preserve, do not record
//
// A target that already holds the new content is skipped instead of written,
// which is what makes repeated runs free of writes.
func Decide(in Input) Decision {
	state := Classify(in.Tracked, in.TrackedHash, in.OnDisk, in.DiskHash)
	if !in.IsUpdate && state != StateAbsent {
		// A first install does not look at the manifest at all.
		state = StateUntracked
	}

	upToDate := in.OnDisk && in.DiskHash == in.NewHash

	switch state {
	case StateAbsent:
		return Decision{State: state, Action: ActionWrite, Record: true}
	case StateUserModified:
		if upToDate {
			// The edit converged with the new content; nothing to protect.
			return Decision{State: state, Action: ActionSkip, Record: true}
		}
		return Decision{State: state, Action: ActionPreserve, Record: false}
	default:
		if upToDate {
			return Decision{State: state, Action: ActionSkip, Record: true}
		}
		return Decision{State: state, Action: ActionWrite, Record: true}
	}
}

// String returns a short name for the state.
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateUntracked:
		return "untracked"
	case StateSynced:
		return "synced"
	case StateUserModified:
		return "user-modified"
	default:
		return "unknown"
	}
}

// String returns a short name for the action.
func (a Action) String() string {
	switch a {
	case ActionWrite:
		return "write"
	case ActionSkip:
		return "skip"
	case ActionPreserve:
		return "preserve"
	default:
		return "unknown"
	}
}
