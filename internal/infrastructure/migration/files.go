package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FilePair points at the up/down SQL files of a single migration.
type FilePair struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// Scaffold creates an empty up/down migration pair in dir. The version
// prefix is the current timestamp (YYYYMMDDHHMMSS) so files sort in
// creation order.
func Scaffold(dir, name, description string) (*FilePair, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}

	now := time.Now()
	version := now.Format("20060102150405")
	base := version + "_" + slugify(name)

	pair := &FilePair{
		Version:  version,
		Name:     name,
		UpPath:   filepath.Join(dir, base+".up.sql"),
		DownPath: filepath.Join(dir, base+".down.sql"),
	}

	upBody := fmt.Sprintf("-- %s\n-- Created: %s\n-- %s\n\n-- Write the UP migration below.\n\n",
		name, now.Format(time.RFC3339), description)
	if err := os.WriteFile(pair.UpPath, []byte(upBody), 0o644); err != nil {
		return nil, fmt.Errorf("write up migration: %w", err)
	}

	downBody := fmt.Sprintf("-- %s (rollback)\n-- Created: %s\n\n-- Write the DOWN migration below.\n\n",
		name, now.Format(time.RFC3339))
	if err := os.WriteFile(pair.DownPath, []byte(downBody), 0o644); err != nil {
		_ = os.Remove(pair.UpPath)
		return nil, fmt.Errorf("write down migration: %w", err)
	}

	return pair, nil
}

// Available lists the migration base names found in dir, one entry per
// up/down pair. A missing directory yields an empty list.
func Available(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries)/2)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok {
			names = append(names, base)
		}
	}
	return names, nil
}

// slugify lowercases a migration name and collapses separators into
// single underscores so it is safe as a file name component.
func slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == ' ' || r == '-' || r == '_':
			s := b.String()
			if len(s) > 0 && !strings.HasSuffix(s, "_") {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
