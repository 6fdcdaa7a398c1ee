// Package report renders migrations and pending plans for people and tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/rlch/migsql"
	"github.com/rlch/migsql/history"
	"github.com/rlch/migsql/operation"
)

// Formatter renders a sequence of migrations.
type Formatter interface {
	// Migration renders the operations of one migration, in order.
	Migration(name string, ops []*operation.Operation) error
	// Summary renders closing totals.
	Summary() error
}

// Format names.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the accepted format names.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// NewFormatter creates a formatter by name. Unknown names fall back to text.
func NewFormatter(name string, w io.Writer, verbose bool) Formatter {
	switch name {
	case FormatJSON:
		return NewJSONFormatter(w)
	case FormatYAML:
		return NewYAMLFormatter(w)
	default:
		return NewTextFormatter(w, verbose, IsTerminal(w))
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// -----------------------------------------------------------------------------
// Text Formatter
// -----------------------------------------------------------------------------

// Styles holds the text formatter's styles.
type Styles struct {
	Header  lipgloss.Style
	Create  lipgloss.Style
	Alter   lipgloss.Style
	Drop    lipgloss.Style
	State   lipgloss.Style
	SQL     lipgloss.Style
	Summary lipgloss.Style
}

// DefaultStyles returns the coloured styles used on terminals.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Create:  lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		Alter:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		Drop:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
		State:   lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		SQL:     lipgloss.NewStyle().Foreground(lipgloss.Color("#9B9B9B")).PaddingLeft(6),
		Summary: lipgloss.NewStyle().Bold(true),
	}
}

// TextFormatter prints one line per operation, optionally followed by its SQL.
type TextFormatter struct {
	w          io.Writer
	verbose    bool
	colorize   bool
	styles     Styles
	migrations int
	operations int
}

// NewTextFormatter creates a text formatter. Colours are used only when
// colorize is set.
func NewTextFormatter(w io.Writer, verbose, colorize bool) *TextFormatter {
	return &TextFormatter{
		w:        w,
		verbose:  verbose,
		colorize: colorize,
		styles:   DefaultStyles(),
	}
}

func (t *TextFormatter) render(style lipgloss.Style, s string) string {
	if !t.colorize {
		return s
	}

	return style.Render(s)
}

func (t *TextFormatter) styleFor(kind operation.Kind) lipgloss.Style {
	switch kind {
	case operation.Create:
		return t.styles.Create
	case operation.Alter:
		return t.styles.Alter
	case operation.ReverseAlter, operation.Delete:
		return t.styles.Drop
	default:
		return t.styles.State
	}
}

// Migration prints the migration header and its operations.
func (t *TextFormatter) Migration(name string, ops []*operation.Operation) error {
	t.migrations++
	t.operations += len(ops)

	if _, err := fmt.Fprintln(t.w, t.render(t.styles.Header, "Migration "+name+":")); err != nil {
		return err
	}

	for _, op := range ops {
		_, _ = fmt.Fprintf(t.w, "  - %s\n", t.render(t.styleFor(op.Kind), op.Describe()))

		if !t.verbose {
			continue
		}

		t.printSQL("sql", op.SQL)
		t.printSQL("reverse", op.ReverseSQL)
	}

	return nil
}

func (t *TextFormatter) printSQL(label string, sql migsql.SQL) {
	if sql.IsNoop() {
		return
	}

	_, _ = fmt.Fprintf(t.w, "    %s:\n", label)

	for _, line := range strings.Split(sql.String(), "\n") {
		if t.colorize {
			_, _ = fmt.Fprintln(t.w, t.styles.SQL.Render(line))
			continue
		}

		_, _ = fmt.Fprintf(t.w, "      %s\n", line)
	}
}

// Summary prints the totals.
func (t *TextFormatter) Summary() error {
	_, err := fmt.Fprintln(t.w, t.render(t.styles.Summary,
		fmt.Sprintf("%s, %s", plural(t.migrations, "migration"), plural(t.operations, "operation"))))

	return err
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}

	return fmt.Sprintf("%d %ss", n, noun)
}

// -----------------------------------------------------------------------------
// JSON Formatter
// -----------------------------------------------------------------------------

// JSONFormatter outputs one JSON object per migration followed by a summary
// object.
type JSONFormatter struct {
	enc        *json.Encoder
	migrations int
	operations int
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w)}
}

type jsonMigration struct {
	Action     string          `json:"action"`
	Migration  string          `json:"migration"`
	Operations []jsonOperation `json:"operations"`
}

type jsonOperation struct {
	Kind               operation.Kind `json:"kind"`
	Key                migsql.Key     `json:"key"`
	Description        string         `json:"description"`
	SQL                migsql.SQL     `json:"sql,omitempty"`
	ReverseSQL         migsql.SQL     `json:"reverse_sql,omitempty"`
	Replace            bool           `json:"replace,omitempty"`
	StateReverseSQL    migsql.SQL     `json:"state_reverse_sql,omitempty"`
	Dependencies       []migsql.Key   `json:"dependencies,omitempty"`
	AddDependencies    []migsql.Key   `json:"add_dependencies,omitempty"`
	RemoveDependencies []migsql.Key   `json:"remove_dependencies,omitempty"`
	DependsOn          []jsonRef      `json:"depends_on,omitempty"`
}

type jsonRef struct {
	Key migsql.Key `json:"key"`
	// Op is the index of the referenced operation in the same migration.
	Op *int `json:"op,omitempty"`
}

// Migration outputs the migration as a JSON object.
func (j *JSONFormatter) Migration(name string, ops []*operation.Operation) error {
	j.migrations++
	j.operations += len(ops)

	index := make(map[*operation.Operation]int, len(ops))
	out := jsonMigration{Action: "migration", Migration: name, Operations: make([]jsonOperation, 0, len(ops))}

	for i, op := range ops {
		jo := jsonOperation{
			Kind:               op.Kind,
			Key:                op.Key,
			Description:        op.Describe(),
			SQL:                op.SQL,
			ReverseSQL:         op.ReverseSQL,
			Replace:            op.Replace,
			StateReverseSQL:    op.StateReverseSQL,
			Dependencies:       op.Dependencies,
			AddDependencies:    op.AddDependencies,
			RemoveDependencies: op.RemoveDependencies,
		}

		for _, ref := range op.DependsOn {
			r := jsonRef{Key: ref.Key}
			if idx, ok := index[ref.Operation]; ok {
				r.Op = &idx
			}

			jo.DependsOn = append(jo.DependsOn, r)
		}

		out.Operations = append(out.Operations, jo)
		index[op] = i
	}

	return j.enc.Encode(out)
}

type jsonSummary struct {
	Action     string `json:"action"`
	Migrations int    `json:"migrations"`
	Operations int    `json:"operations"`
}

// Summary outputs the final JSON summary.
func (j *JSONFormatter) Summary() error {
	return j.enc.Encode(jsonSummary{
		Action:     "summary",
		Migrations: j.migrations,
		Operations: j.operations,
	})
}

// -----------------------------------------------------------------------------
// YAML Formatter
// -----------------------------------------------------------------------------

// YAMLFormatter prints each migration as it would be written to disk,
// separated by document markers.
type YAMLFormatter struct {
	w     io.Writer
	count int
}

// NewYAMLFormatter creates a YAML formatter.
func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{w: w}
}

// Migration prints the migration document.
func (y *YAMLFormatter) Migration(name string, ops []*operation.Operation) error {
	data, err := history.Encode(name, ops)
	if err != nil {
		return err
	}

	if y.count > 0 {
		if _, err := io.WriteString(y.w, "---\n"); err != nil {
			return err
		}
	}

	y.count++

	_, err = y.w.Write(data)

	return err
}

// Summary does nothing; YAML output carries no totals.
func (y *YAMLFormatter) Summary() error {
	return nil
}
