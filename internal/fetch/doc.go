// Package fetch downloads remote draft assets into workspaces. Downloads
// stream to disk, verify declared content lengths, and retry with
// exponential backoff; fan-out across a workspace's assets is bounded.
package fetch
