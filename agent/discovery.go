package agent

import (
	"os"

	"github.com/anchor/marquise"
	"github.com/anchor/marquise/internal/errorsx"
	"github.com/anchor/marquise/internal/fsx"
)

// Namespaces lists the namespaces with spool directories below base. entries
// that do not form valid namespaces are ignored.
func Namespaces(base string) (namespaces []string, err error) {
	entries, err := os.ReadDir(base)
	if fsx.ErrIsNotExist(err) != nil {
		return nil, errorsx.Wrapf(err, "unable to read spool directory: %s", base)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if marquise.ValidateNamespace(entry.Name()) != nil {
			continue
		}

		namespaces = append(namespaces, entry.Name())
	}

	return namespaces, nil
}
