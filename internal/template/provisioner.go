// Package template materializes fresh draft workspaces from named,
// read-only template trees.
package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"draftforge/internal/fileutil"
	"draftforge/internal/logging"
	"draftforge/internal/workspace"
)

var (
	// ErrTemplateNotFound is returned when the named template tree is absent.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrWorkspaceExists is returned when the target workspace directory is
	// already present, meaning a prior run for the same draft ID has not been
	// cleaned up.
	ErrWorkspaceExists = errors.New("workspace already exists")
)

// Provisioner copies template trees into per-draft workspaces.
type Provisioner struct {
	templatesDir string
	logger       *slog.Logger
}

// NewProvisioner builds a provisioner reading templates from templatesDir.
func NewProvisioner(templatesDir string, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		templatesDir: templatesDir,
		logger:       logging.NewComponentLogger(logger, "provisioner"),
	}
}

// List returns the available template names.
func (p *Provisioner) List() ([]string, error) {
	entries, err := os.ReadDir(p.templatesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read templates dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Provision creates the workspace directory for ws by copying the named
// template tree and seeding an empty metadata document when the template
// does not carry one. It creates exactly one directory tree and never
// overwrites an existing workspace.
func (p *Provisioner) Provision(ctx context.Context, templateName string, ws *workspace.Workspace) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	templateName = strings.TrimSpace(templateName)
	if templateName == "" || templateName != filepath.Base(templateName) {
		return fmt.Errorf("%w: invalid template name %q", ErrTemplateNotFound, templateName)
	}

	src := filepath.Join(p.templatesDir, templateName)
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrTemplateNotFound, templateName)
		}
		return fmt.Errorf("stat template %s: %w", templateName, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrTemplateNotFound, templateName)
	}

	if _, err := os.Stat(ws.Path()); err == nil {
		return fmt.Errorf("%w: %s", ErrWorkspaceExists, ws.Path())
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat workspace %s: %w", ws.Path(), err)
	}

	if err := fileutil.CopyTree(src, ws.Path()); err != nil {
		// A partial copy must not be mistaken for a live workspace.
		_ = os.RemoveAll(ws.Path())
		return fmt.Errorf("provision workspace from template %s: %w", templateName, err)
	}

	seedPath := filepath.Join(ws.Path(), workspace.MetadataFilename)
	if _, err := os.Stat(seedPath); os.IsNotExist(err) {
		if err := fileutil.WriteFileAtomic(seedPath, []byte("{}"), 0o644); err != nil {
			_ = os.RemoveAll(ws.Path())
			return fmt.Errorf("seed metadata document: %w", err)
		}
	}

	ctxLogger := logging.WithContext(ctx, p.logger)
	ctxLogger.Info("workspace provisioned",
		logging.String(logging.FieldEventType, "workspace_provisioned"),
		logging.String("template", templateName),
		logging.String("path", ws.Path()),
	)
	return nil
}
