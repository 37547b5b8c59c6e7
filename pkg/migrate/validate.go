package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/angelmondragon/auditmagic/pkg/db"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
)

// Dialects lists the migration sets kept side by side.
var Dialects = []string{db.DialectSQLite, db.DialectPostgres}

// ValidateDir validates every dialect set under dir and checks that all sets
// carry the same migration names. An empty dir validates the embedded sets.
func ValidateDir(dir string) error {
	sets := make(map[string][]string, len(Dialects))
	for _, dialect := range Dialects {
		var fsys fs.FS
		var err error
		if dir == "" {
			fsys, err = Source(dialect, "")
			if err != nil {
				return err
			}
		} else {
			fsys = os.DirFS(path.Join(dir, dialect))
		}
		names, err := ValidateFS(fsys)
		if err != nil {
			return fmt.Errorf("%s: %w", dialect, err)
		}
		sets[dialect] = names
	}

	reference := sets[Dialects[0]]
	for _, dialect := range Dialects[1:] {
		if strings.Join(sets[dialect], ",") != strings.Join(reference, ",") {
			return fmt.Errorf("%s migrations %v differ from %s migrations %v", dialect, sets[dialect], Dialects[0], reference)
		}
	}
	return nil
}

// ValidateFS validates migration filenames + basic SQL headers and returns
// the sorted file names.
func ValidateFS(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	seen := map[string]string{} // version -> filename
	var names []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", name, err)
		}

		txt := string(b)
		if !strings.Contains(txt, "-- +goose Up") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
		}
		if !strings.Contains(txt, "-- +goose Down") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
		}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}
