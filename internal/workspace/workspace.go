package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"draftforge/internal/draft"
	"draftforge/internal/fileutil"
)

// MetadataFilename is the draft metadata document inside a workspace.
const MetadataFilename = "draft_content.json"

// State tracks the lifecycle position of a workspace.
type State string

const (
	StateCreated     State = "created"
	StateProvisioned State = "provisioned"
	StateFetching    State = "fetching"
	StateFinalized   State = "finalized"
	StateArchived    State = "archived"
	StateUploaded    State = "uploaded"
	StateCleaned     State = "cleaned"
	StateFailed      State = "failed"
)

// AssetStatus tracks one asset task.
type AssetStatus string

const (
	AssetPending     AssetStatus = "pending"
	AssetDownloading AssetStatus = "downloading"
	AssetVerified    AssetStatus = "verified"
	AssetFailed      AssetStatus = "failed"
)

// ErrNotReady is returned when metadata finalization is attempted before
// every asset task has been verified.
var ErrNotReady = errors.New("workspace not ready")

// AssetTask is the mutable fetch state for one asset. A task is mutated only
// by its assigned fetcher goroutine; readers go through the accessors.
type AssetTask struct {
	Asset draft.Asset

	mu       sync.Mutex
	status   AssetStatus
	attempts int
	err      error
}

// Status returns the current task status.
func (t *AssetTask) Status() AssetStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Attempts returns the number of fetch attempts made so far.
func (t *AssetTask) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// Err returns the last fetch error, if any.
func (t *AssetTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// MarkDownloading records the start of a fetch attempt.
func (t *AssetTask) MarkDownloading() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = AssetDownloading
	t.attempts++
}

// MarkVerified records a completed, length-verified download.
func (t *AssetTask) MarkVerified() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = AssetVerified
	t.err = nil
}

// MarkFailed records a permanently failed task.
func (t *AssetTask) MarkFailed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = AssetFailed
	t.err = err
}

// Workspace is the per-draft aggregate: directory, lifecycle state, and
// asset tasks. The directory name always equals the draft ID.
type Workspace struct {
	id   string
	root string

	mu    sync.Mutex
	state State
	tasks []*AssetTask
}

// New creates a workspace handle for the given draft ID under workingRoot.
// The directory itself is materialized by the template provisioner.
func New(id, workingRoot string) *Workspace {
	return &Workspace{
		id:    id,
		root:  filepath.Join(workingRoot, id),
		state: StateCreated,
	}
}

// ID returns the draft identifier.
func (w *Workspace) ID() string { return w.id }

// Path returns the workspace directory.
func (w *Workspace) Path() string { return w.root }

// State returns the current lifecycle state.
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// SetState records a lifecycle transition. Only the orchestrator calls this.
func (w *Workspace) SetState(state State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = state
}

// AddAsset registers an asset task on the workspace.
func (w *Workspace) AddAsset(asset draft.Asset) *AssetTask {
	task := &AssetTask{Asset: asset, status: AssetPending}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tasks = append(w.tasks, task)
	return task
}

// Tasks returns the registered asset tasks in submission order.
func (w *Workspace) Tasks() []*AssetTask {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*AssetTask, len(w.tasks))
	copy(out, w.tasks)
	return out
}

// AssetStatuses returns the status of every task keyed by target path.
func (w *Workspace) AssetStatuses() map[string]AssetStatus {
	statuses := make(map[string]AssetStatus)
	for _, task := range w.Tasks() {
		statuses[task.Asset.Path] = task.Status()
	}
	return statuses
}

// FinalizeMetadata writes the metadata document into the workspace. It is
// only valid once every asset task is verified; the write is atomic so a
// concurrent reader of the directory never observes a partial document.
func (w *Workspace) FinalizeMetadata(document []byte) error {
	for _, task := range w.Tasks() {
		if status := task.Status(); status != AssetVerified {
			return fmt.Errorf("%w: asset %s is %s", ErrNotReady, task.Asset.Path, status)
		}
	}
	return fileutil.WriteFileAtomic(filepath.Join(w.root, MetadataFilename), document, 0o644)
}

// Remove deletes the workspace directory tree.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.root)
}
