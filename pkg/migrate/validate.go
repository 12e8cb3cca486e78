package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDirs checks every directory on its own and then requires that all
// of them carry the same migration filenames.
func ValidateDirs(dirs ...string) error {
	if len(dirs) == 0 {
		dirs = []string{DefaultDir, SQLiteDir}
	}
	var first []string
	for i, dir := range dirs {
		names, err := validateDir(dir)
		if err != nil {
			return err
		}
		if i == 0 {
			first = names
			continue
		}
		if !slices.Equal(first, names) {
			return fmt.Errorf("%q and %q do not contain the same migrations", dirs[0], dir)
		}
	}
	return nil
}

// validateDir returns the sorted migration filenames in dir.
func validateDir(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", name, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(b), marker) {
				return nil, fmt.Errorf("migration %q missing %q", name, marker)
			}
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
