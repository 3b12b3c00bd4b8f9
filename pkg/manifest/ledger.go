// SPDX-License-Identifier: MPL-2.0

package manifest

import "github.com/strata-dev/strata/pkg/types"

// Ledger is a read/write view over one of the manifest's hash maps.
type Ledger struct {
	lookup func(types.TrackedPath) (types.ContentHash, bool)
	record func(types.TrackedPath, types.ContentHash)
}

// TrackedLedger returns the view over trackedFiles.
func (m *Manifest) TrackedLedger() *Ledger {
	return &Ledger{lookup: m.TrackedHash, record: m.Track}
}

// CustomizationLedger returns the view over customizationFiles.
func (m *Manifest) CustomizationLedger() *Ledger {
	return &Ledger{lookup: m.CustomizationHash, record: m.TrackCustomization}
}

// Lookup returns the last known hash for p.
func (l *Ledger) Lookup(p types.TrackedPath) (types.ContentHash, bool) { return l.lookup(p) }

// Record stores the hash for p.
func (l *Ledger) Record(p types.TrackedPath, h types.ContentHash) { l.record(p, h) }
