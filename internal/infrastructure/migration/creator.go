package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"
)

// SourceDir is where new migration files are written, relative to the module root
const SourceDir = "internal/infrastructure/migration/sql"

var migrationTemplate = template.Must(template.New("migration").Parse(`-- Migration: {{.Name}} ({{.Direction}})
-- Created: {{.Timestamp}}

`))

// MigrationFile describes a created up/down pair
type MigrationFile struct {
	Version  uint
	Name     string
	UpPath   string
	DownPath string
}

var (
	nonWord     = regexp.MustCompile(`[^a-z0-9]+`)
	versionName = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)
)

// CreateMigration writes the next sequentially numbered migration pair into dir
func CreateMigration(dir, name string) (*MigrationFile, error) {
	slug := strings.Trim(nonWord.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return nil, fmt.Errorf("invalid migration name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := ListMigrations(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	var next uint = 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}

	base := fmt.Sprintf("%06d_%s", next, slug)
	mf := &MigrationFile{
		Version:  next,
		Name:     slug,
		UpPath:   filepath.Join(dir, base+".up.sql"),
		DownPath: filepath.Join(dir, base+".down.sql"),
	}
	now := time.Now().Format(time.RFC3339)
	if err := writeTemplate(mf.UpPath, mf.Name, "up", now); err != nil {
		return nil, err
	}
	if err := writeTemplate(mf.DownPath, mf.Name, "down", now); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

// ListMigrations returns the up migrations in fsys ordered by version
func ListMigrations(fsys fs.FS) ([]MigrationFile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	var out []MigrationFile
	for _, e := range entries {
		m := versionName.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		var v uint
		if _, err := fmt.Sscan(m[1], &v); err != nil {
			continue
		}
		out = append(out, MigrationFile{Version: v, Name: m[2], UpPath: e.Name()})
	}
	// fs.ReadDir sorts by name and versions are zero padded
	return out, nil
}

// Embedded lists the migrations compiled into the binary
func Embedded() ([]MigrationFile, error) {
	sub, err := fs.Sub(migrationsFS, "sql")
	if err != nil {
		return nil, err
	}
	return ListMigrations(sub)
}

func writeTemplate(path, name, direction, timestamp string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	return migrationTemplate.Execute(f, map[string]string{
		"Name":      name,
		"Direction": direction,
		"Timestamp": timestamp,
	})
}
