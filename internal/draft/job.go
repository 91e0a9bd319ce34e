package draft

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Kind classifies an asset for bookkeeping and content-type selection.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

var knownKinds = map[Kind]struct{}{
	KindAudio: {},
	KindVideo: {},
	KindImage: {},
}

// Asset names one remote media resource and its target location inside the
// workspace.
type Asset struct {
	URL  string `yaml:"url" json:"url"`
	Path string `yaml:"path" json:"path"`
	Kind Kind   `yaml:"kind" json:"kind"`
}

// Job is the manifest for one draft assembly run.
type Job struct {
	DraftID  string         `yaml:"draft_id" json:"draft_id"`
	Template string         `yaml:"template" json:"template"`
	Assets   []Asset        `yaml:"assets" json:"assets"`
	Metadata map[string]any `yaml:"metadata" json:"metadata"`
}

// NewDraftID generates an identifier in the jy_<unixtime>_<hex8> form.
func NewDraftID() string {
	return fmt.Sprintf("jy_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
}

// Parse decodes a manifest from YAML (or JSON, which YAML subsumes) and
// validates it. A missing draft_id is filled with a generated one.
func Parse(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if strings.TrimSpace(job.DraftID) == "" {
		job.DraftID = NewDraftID()
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// ParseFile reads and parses a manifest file.
func ParseFile(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Validate checks manifest integrity before a run starts.
func (j *Job) Validate() error {
	if strings.ContainsAny(j.DraftID, `/\`) || j.DraftID != filepath.Base(j.DraftID) {
		return fmt.Errorf("draft_id %q must be a plain name", j.DraftID)
	}
	if strings.TrimSpace(j.Template) == "" {
		return fmt.Errorf("template must be set")
	}

	seen := make(map[string]struct{}, len(j.Assets))
	for i, asset := range j.Assets {
		if strings.TrimSpace(asset.URL) == "" {
			return fmt.Errorf("asset %d: url must be set", i)
		}
		path := filepath.Clean(strings.TrimSpace(asset.Path))
		if path == "" || path == "." {
			return fmt.Errorf("asset %d: path must be set", i)
		}
		if filepath.IsAbs(path) || !filepath.IsLocal(path) {
			return fmt.Errorf("asset %d: path %q must stay inside the workspace", i, asset.Path)
		}
		if _, dup := seen[path]; dup {
			return fmt.Errorf("asset %d: duplicate target path %q", i, path)
		}
		seen[path] = struct{}{}
		if _, ok := knownKinds[asset.Kind]; !ok {
			return fmt.Errorf("asset %d: unknown kind %q", i, asset.Kind)
		}
		j.Assets[i].Path = path
	}
	return nil
}

// MetadataJSON serializes the metadata document. A nil metadata map yields an
// empty JSON object, the seed state of a fresh draft.
func (j *Job) MetadataJSON() ([]byte, error) {
	if j.Metadata == nil {
		return []byte("{}"), nil
	}
	data, err := json.MarshalIndent(j.Metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

// EncodeJSON serializes the whole job, used when queuing runs for the daemon.
func (j *Job) EncodeJSON() ([]byte, error) {
	return json.Marshal(j)
}

// DecodeJSON restores a queued job.
func DecodeJSON(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}
