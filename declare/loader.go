// Package declare loads SQL item declarations from YAML and HCL files.
package declare

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/boyter/gocodewalker"
	"go.uber.org/zap"

	"github.com/rlch/migsql"
)

// rawItem is a decoded declaration before its dependencies are resolved
// against the namespace.
type rawItem struct {
	Name         string
	SQL          migsql.SQL
	ReverseSQL   migsql.SQL
	Dependencies []string
	Replace      bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader reads declaration files and caches them by absolute path.
type Loader struct {
	logger *zap.Logger

	// cache stores decoded files by absolute path.
	cache map[string][]rawItem
}

// NewLoader creates a new declaration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		logger: zap.NewNop(),
		cache:  make(map[string][]rawItem),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// IsDeclarationFile reports whether path has a declaration file extension.
func IsDeclarationFile(path string) bool {
	for _, ext := range migsql.DeclarationExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}

// LoadFile reads the items declared in one file. Bare dependency names
// resolve against namespace.
func (l *Loader) LoadFile(path, namespace string) ([]migsql.Item, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &LoadError{Path: path, Namespace: namespace, Cause: err}
	}

	raw, err := l.decode(absPath)
	if err != nil {
		return nil, &LoadError{Path: absPath, Namespace: namespace, Cause: err}
	}

	items := make([]migsql.Item, 0, len(raw))

	for _, r := range raw {
		it, err := resolveItem(r, namespace)
		if err != nil {
			return nil, &LoadError{Path: absPath, Namespace: namespace, Cause: err}
		}

		items = append(items, it)
	}

	return items, nil
}

func (l *Loader) decode(absPath string) ([]rawItem, error) {
	if raw, ok := l.cache[absPath]; ok {
		return raw, nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	var raw []rawItem

	switch {
	case strings.HasSuffix(absPath, migsql.ExtYAML), strings.HasSuffix(absPath, migsql.ExtYML):
		raw, err = decodeYAML(data)
	case strings.HasSuffix(absPath, migsql.ExtHCL):
		raw, err = decodeHCL(absPath, data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(absPath))
	}

	if err != nil {
		return nil, err
	}

	l.cache[absPath] = raw
	l.logger.Debug("decoded declarations", zap.String("path", absPath), zap.Int("items", len(raw)))

	return raw, nil
}

func resolveItem(r rawItem, namespace string) (migsql.Item, error) {
	if strings.TrimSpace(r.Name) == "" {
		return migsql.Item{}, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}

	if strings.Contains(r.Name, ".") {
		return migsql.Item{}, fmt.Errorf("%w: name %q must not contain a dot", ErrInvalidItem, r.Name)
	}

	it := migsql.Item{
		Name:       r.Name,
		SQL:        r.SQL,
		ReverseSQL: r.ReverseSQL,
		Replace:    r.Replace,
	}

	for _, dep := range r.Dependencies {
		k, err := migsql.ParseKey(dep, namespace)
		if err != nil {
			return migsql.Item{}, fmt.Errorf("item %q: dependency: %w", r.Name, err)
		}

		it.Dependencies = append(it.Dependencies, k)
	}

	return it, nil
}

// LoadDir reads every declaration file below dir, honouring .gitignore and
// .ignore files, and merges them into one namespace. Files are read in path
// order.
func (l *Loader) LoadDir(dir, namespace string) ([]migsql.Item, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Path: dir, Namespace: namespace, Cause: err}
	}

	if !info.IsDir() {
		return nil, &LoadError{Path: dir, Namespace: namespace, Cause: fmt.Errorf("not a directory")}
	}

	paths, err := findDeclarationFiles(dir)
	if err != nil {
		return nil, &LoadError{Path: dir, Namespace: namespace, Cause: err}
	}

	l.logger.Debug("discovered declaration files",
		zap.String("namespace", namespace),
		zap.String("dir", dir),
		zap.Int("count", len(paths)),
	)

	files := make([]parsedFile, 0, len(paths))

	for _, path := range paths {
		items, err := l.LoadFile(path, namespace)
		if err != nil {
			return nil, err
		}

		files = append(files, parsedFile{Path: path, Items: items})
	}

	return mergeFiles(namespace, files)
}

// LoadConfig loads every namespace listed in cfg, keyed by namespace name.
func (l *Loader) LoadConfig(cfg *migsql.Config) (map[string][]migsql.Item, error) {
	decls := make(map[string][]migsql.Item, len(cfg.Namespaces))

	for _, ns := range cfg.Namespaces {
		items, err := l.LoadDir(cfg.NamespaceDir(ns), ns.Name)
		if err != nil {
			return nil, err
		}

		decls[ns.Name] = items
	}

	return decls, nil
}

// Clear clears the file cache.
func (l *Loader) Clear() {
	l.cache = make(map[string][]rawItem)
}

// Cached returns the absolute paths of all cached files.
func (l *Loader) Cached() []string {
	return slices.Sorted(maps.Keys(l.cache))
}

// findDeclarationFiles walks root with gocodewalker and returns the
// declaration files found, sorted.
func findDeclarationFiles(root string) ([]string, error) {
	fileListQueue := make(chan *gocodewalker.File, 100)

	fileWalker := gocodewalker.NewFileWalker(root, fileListQueue)
	fileWalker.AllowListExtensions = []string{"yaml", "yml", "hcl"}

	var walkErr error
	fileWalker.SetErrorHandler(func(e error) bool {
		walkErr = e
		return true
	})

	var (
		wg    sync.WaitGroup
		paths []string
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		for f := range fileListQueue {
			if IsDeclarationFile(f.Location) {
				paths = append(paths, f.Location)
			}
		}
	}()

	if err := fileWalker.Start(); err != nil {
		return nil, err
	}

	wg.Wait()

	slices.Sort(paths)

	return paths, walkErr
}
