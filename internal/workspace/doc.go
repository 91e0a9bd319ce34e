// Package workspace models the exclusively-owned working directory of one
// draft: its lifecycle state, its asset tasks, and the metadata document.
// The registry enforces that no two concurrent runs share a draft ID.
package workspace
