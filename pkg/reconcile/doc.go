// SPDX-License-Identifier: MPL-2.0

// Package reconcile decides, file by file, whether generated content may
// replace what is on disk.
//
// The decision is a three-way comparison between the new content, the file
// currently on disk and the hash recorded the last time the installer wrote
// it. A two-way comparison cannot tell an upgrade apart from a user edit; the
// recorded hash can. [Decide] is a pure function of the three hashes so the
// state machine is testable without a filesystem; [Reconciler] applies the
// decisions to single files and to whole directory trees.
package reconcile
