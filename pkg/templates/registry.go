package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

//go:embed assets/**/*.tmpl
var embeddedFS embed.FS

// Template is one parsed prompt template.
type Template struct {
	ID      string
	Path    string
	Content string

	parsed *template.Template
}

// Render executes the template with the provided data.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.parsed.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", t.ID, err)
	}
	return buf.String(), nil
}

// Registry resolves prompt templates by ID. IDs mirror the file layout under
// the template root, without the .tmpl extension (e.g. "agents/interpreter").
type Registry struct {
	templates map[string]*Template
	mu        sync.RWMutex
}

// NewRegistry loads all templates from a directory on disk. Used to override
// the embedded prompts in development.
func NewRegistry(basePath string) (*Registry, error) {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve template base path: %w", err)
	}
	return NewRegistryFromFS(os.DirFS(absBase))
}

// NewRegistryFromFS loads every .tmpl file reachable in the filesystem.
func NewRegistryFromFS(filesystem fs.FS) (*Registry, error) {
	r := &Registry{templates: map[string]*Template{}}

	err := fs.WalkDir(filesystem, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".tmpl" {
			return nil
		}

		content, err := fs.ReadFile(filesystem, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		id := pathToID(path)
		parsed, err := template.New(id).Funcs(helperFuncs).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", id, err)
		}

		r.templates[id] = &Template{
			ID:      id,
			Path:    path,
			Content: string(content),
			parsed:  parsed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Get returns the lazily initialized default registry backed by the embedded
// assets.
func Get() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = newEmbeddedRegistry()
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultRegistry
}

// GetTemplate retrieves a template by ID.
func (r *Registry) GetTemplate(id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tmpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", id)
	}
	return tmpl, nil
}

// Render executes a template by ID using the provided data.
func (r *Registry) Render(id string, data any) (string, error) {
	tmpl, err := r.GetTemplate(id)
	if err != nil {
		return "", err
	}
	return tmpl.Render(data)
}

// List returns all known template IDs.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	return ids
}

func pathToID(rel string) string {
	normalized := strings.TrimPrefix(filepath.ToSlash(rel), "/")
	return strings.TrimSuffix(normalized, filepath.Ext(normalized))
}

func newEmbeddedRegistry() (*Registry, error) {
	subFS, err := fs.Sub(embeddedFS, "assets")
	if err != nil {
		return nil, fmt.Errorf("prepare embedded templates: %w", err)
	}
	return NewRegistryFromFS(subFS)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)
