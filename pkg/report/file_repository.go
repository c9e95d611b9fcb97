package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const reportFileName = "report.json"

// FileRepository implements Repository using a JSON file.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a new FileRepository for the given directory.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Load reads the report from disk.
// Returns an empty report and nil error if no report file exists.
func (r *FileRepository) Load(ctx context.Context) (Report, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Report{}, nil
		}
		return Report{}, fmt.Errorf("report: read: %w", err)
	}

	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return Report{}, fmt.Errorf("report: decode %s: %w", r.Path(), err)
	}
	return rep, nil
}

// Save writes the report to a temp file and renames it into place.
func (r *FileRepository) Save(ctx context.Context, rep Report) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the report file.
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, reportFileName)
}
