package declare

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/rlch/migsql"
)

// yamlFile is the layout of a *.sql.yaml declaration file:
//
//	items:
//	  - name: top_books
//	    sql: CREATE VIEW top_books AS ...
//	    reverse_sql: DROP VIEW top_books
//	    dependencies: [book, library.author]
//	    replace: true
type yamlFile struct {
	Items []yamlItem `yaml:"items"`
}

type yamlItem struct {
	Name         string     `yaml:"name"`
	SQL          migsql.SQL `yaml:"sql"`
	ReverseSQL   migsql.SQL `yaml:"reverse_sql"`
	Dependencies []string   `yaml:"dependencies"`
	Replace      bool       `yaml:"replace"`
}

func decodeYAML(data []byte) ([]rawItem, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file yamlFile

	err := dec.Decode(&file)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}

	out := make([]rawItem, len(file.Items))
	for i, it := range file.Items {
		out[i] = rawItem{
			Name:         it.Name,
			SQL:          it.SQL,
			ReverseSQL:   it.ReverseSQL,
			Dependencies: it.Dependencies,
			Replace:      it.Replace,
		}
	}

	return out, nil
}
