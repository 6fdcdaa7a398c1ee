package declare

import (
	"fmt"
	"path/filepath"

	"github.com/rlch/migsql"
)

// parsedFile pairs the items of a declaration file with its path.
type parsedFile struct {
	Path  string
	Items []migsql.Item
}

// mergeFiles combines the files of one namespace, rejecting item names
// declared more than once.
func mergeFiles(namespace string, files []parsedFile) ([]migsql.Item, error) {
	definedIn := make(map[string]string)

	var merged []migsql.Item

	for _, file := range files {
		for _, it := range file.Items {
			if prev, ok := definedIn[it.Name]; ok {
				where := "the same file"
				if prev != file.Path {
					where = filepath.Base(prev)
				}

				return nil, &MergeError{
					Code: "duplicate-item",
					Message: fmt.Sprintf("item %s declared in %s is already declared in %s",
						migsql.K(namespace, it.Name), filepath.Base(file.Path), where),
				}
			}

			definedIn[it.Name] = file.Path
			merged = append(merged, it)
		}
	}

	return merged, nil
}
