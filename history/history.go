// Package history stores detected operations as numbered migration files and
// rebuilds the recorded item state by replaying them.
package history

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rlch/migsql/graph"
	"github.com/rlch/migsql/operation"
)

// History errors.
var (
	ErrMigrationExists = errors.New("history: migration already exists")
	ErrInvalidName     = errors.New("history: invalid migration name")
)

// InitialName is the name of the first migration unless one is given.
const InitialName = "initial"

var (
	fileRe = regexp.MustCompile(`^(\d{4,})_([A-Za-z0-9_]+)\.ya?ml$`)
	nameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Migration is one recorded migration.
type Migration struct {
	// Number orders migrations.
	Number int
	// Name is the file name without extension, e.g. "0002_auto_20261019_1204".
	Name       string
	Path       string
	Operations []*operation.Operation
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store reads and writes migrations in one directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore returns a store for dir. The directory is created on first write.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, logger: zap.NewNop()}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Dir returns the migration directory.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads every migration in number order. A missing directory holds no
// migrations.
func (s *Store) Load() ([]*Migration, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.dir, err)
	}

	var migs []*Migration

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		m := fileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}

		number, _ := strconv.Atoi(m[1])

		mig, err := s.loadFile(filepath.Join(s.dir, entry.Name()), number)
		if err != nil {
			return nil, err
		}

		migs = append(migs, mig)
	}

	slices.SortStableFunc(migs, func(a, b *Migration) int {
		if a.Number != b.Number {
			return a.Number - b.Number
		}

		return strings.Compare(a.Name, b.Name)
	})

	s.logger.Debug("loaded migrations", zap.String("dir", s.dir), zap.Int("count", len(migs)))

	return migs, nil
}

func (s *Store) loadFile(path string, number int) (*Migration, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var file migrationFile

	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	ops, err := decodeOperations(&file)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	base := filepath.Base(path)

	return &Migration{
		Number:     number,
		Name:       strings.TrimSuffix(base, filepath.Ext(base)),
		Path:       path,
		Operations: ops,
	}, nil
}

// NextName returns the name of the migration that follows migs. An empty
// name becomes "initial" for the first migration and "auto_<timestamp>"
// afterwards.
func NextName(migs []*Migration, name string, now time.Time) (string, error) {
	number := 1
	if len(migs) > 0 {
		number = migs[len(migs)-1].Number + 1
	}

	switch {
	case name != "":
		if !nameRe.MatchString(name) {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	case number == 1:
		name = InitialName
	default:
		name = "auto_" + now.Format("20060102_1504")
	}

	return fmt.Sprintf("%04d_%s", number, name), nil
}

// Encode renders ops as a migration file.
func Encode(name string, ops []*operation.Operation) ([]byte, error) {
	file, err := encodeOperations(ops)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s: generated by migsql makemigrations.\n", name)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(file); err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Write records ops as the migration name, e.g. "0001_initial". It refuses to
// overwrite an existing file.
func (s *Store) Write(name string, ops []*operation.Operation) (*Migration, error) {
	m := fileRe.FindStringSubmatch(name + ".yaml")
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	number, _ := strconv.Atoi(m[1])

	data, err := Encode(name, ops)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, name+".yaml")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrMigrationExists, path)
	}

	if err != nil {
		return nil, err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := f.Close(); err != nil {
		return nil, err
	}

	s.logger.Debug("wrote migration", zap.String("path", path), zap.Int("operations", len(ops)))

	return &Migration{Number: number, Name: name, Path: path, Operations: ops}, nil
}

// State loads every migration and replays it.
func (s *Store) State(strict bool) (*graph.Graph, []*Migration, error) {
	migs, err := s.Load()
	if err != nil {
		return nil, nil, err
	}

	g, err := Replay(migs, strict)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("replayed migrations", zap.Int("migrations", len(migs)), zap.Int("items", g.Len()))

	return g, migs, nil
}

// Replay applies the operations of migs in order to an empty graph and
// resolves it. Without strict, operations on items missing from the replayed
// state are skipped.
func Replay(migs []*Migration, strict bool) (*graph.Graph, error) {
	g := graph.New()

	for _, mig := range migs {
		for i, op := range mig.Operations {
			if err := op.Apply(g, strict); err != nil {
				return nil, fmt.Errorf("replaying %s: operation %d: %w", mig.Name, i, err)
			}
		}
	}

	if err := g.Resolve(); err != nil {
		return nil, fmt.Errorf("replaying migrations: %w", err)
	}

	return g, nil
}
