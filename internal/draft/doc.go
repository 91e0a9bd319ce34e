// Package draft defines the job manifest callers submit to the lifecycle:
// the draft identifier, the template to instantiate, the remote assets to
// acquire, and the metadata document written into the finished workspace.
package draft
