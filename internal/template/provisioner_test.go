package template

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"draftforge/internal/logging"
	"draftforge/internal/workspace"
)

func writeTemplate(t *testing.T, templatesDir, name string, withMetadata bool) {
	t.Helper()
	dir := filepath.Join(templatesDir, name)
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatalf("mkdir template: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "cover.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("write template asset: %v", err)
	}
	if withMetadata {
		if err := os.WriteFile(filepath.Join(dir, workspace.MetadataFilename), []byte(`{"seed":true}`), 0o644); err != nil {
			t.Fatalf("write template metadata: %v", err)
		}
	}
}

func TestProvisionCopiesTemplateTree(t *testing.T) {
	base := t.TempDir()
	templates := filepath.Join(base, "templates")
	writeTemplate(t, templates, "vertical", false)

	prov := NewProvisioner(templates, logging.NewNop())
	ws := workspace.New("d1", filepath.Join(base, "work"))

	if err := prov.Provision(context.Background(), "vertical", ws); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if _, err := os.Stat(filepath.Join(ws.Path(), "assets", "cover.png")); err != nil {
		t.Fatalf("expected copied asset: %v", err)
	}
	seed, err := os.ReadFile(filepath.Join(ws.Path(), workspace.MetadataFilename))
	if err != nil {
		t.Fatalf("expected seeded metadata: %v", err)
	}
	if string(seed) != "{}" {
		t.Fatalf("unexpected seed document: %q", seed)
	}
}

func TestProvisionKeepsTemplateMetadata(t *testing.T) {
	base := t.TempDir()
	templates := filepath.Join(base, "templates")
	writeTemplate(t, templates, "vertical", true)

	prov := NewProvisioner(templates, logging.NewNop())
	ws := workspace.New("d1", filepath.Join(base, "work"))
	if err := prov.Provision(context.Background(), "vertical", ws); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	seed, err := os.ReadFile(filepath.Join(ws.Path(), workspace.MetadataFilename))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if string(seed) != `{"seed":true}` {
		t.Fatalf("template metadata overwritten: %q", seed)
	}
}

func TestProvisionUnknownTemplate(t *testing.T) {
	base := t.TempDir()
	prov := NewProvisioner(filepath.Join(base, "templates"), logging.NewNop())
	ws := workspace.New("d1", filepath.Join(base, "work"))

	err := prov.Provision(context.Background(), "missing", ws)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if _, statErr := os.Stat(ws.Path()); !os.IsNotExist(statErr) {
		t.Fatal("workspace directory must not be created on failure")
	}
}

func TestProvisionRejectsExistingWorkspace(t *testing.T) {
	base := t.TempDir()
	templates := filepath.Join(base, "templates")
	writeTemplate(t, templates, "vertical", false)

	prov := NewProvisioner(templates, logging.NewNop())
	ws := workspace.New("d1", filepath.Join(base, "work"))
	if err := os.MkdirAll(ws.Path(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err := prov.Provision(context.Background(), "vertical", ws)
	if !errors.Is(err, ErrWorkspaceExists) {
		t.Fatalf("expected ErrWorkspaceExists, got %v", err)
	}
}

func TestProvisionRejectsPathTraversalName(t *testing.T) {
	base := t.TempDir()
	prov := NewProvisioner(filepath.Join(base, "templates"), logging.NewNop())
	ws := workspace.New("d1", filepath.Join(base, "work"))

	if err := prov.Provision(context.Background(), "../outside", ws); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound for traversal name, got %v", err)
	}
}

func TestListTemplates(t *testing.T) {
	base := t.TempDir()
	templates := filepath.Join(base, "templates")
	writeTemplate(t, templates, "a", false)
	writeTemplate(t, templates, "b", false)

	prov := NewProvisioner(templates, logging.NewNop())
	names, err := prov.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 templates, got %v", names)
	}
}
