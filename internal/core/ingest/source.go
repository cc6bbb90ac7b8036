package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agenthands/ontograph/internal/core/errs"
)

// Source yields dataset files by name. Open returns an errs.NotFoundError when
// the file does not exist so that the pipeline can skip it.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	String() string
}

// RunScoped is implemented by sources that hold state for the length of one
// ingestion run. The returned release func drops that state.
type RunScoped interface {
	ForRun() (Source, func())
}

func runSource(src Source) (Source, func()) {
	if rs, ok := src.(RunScoped); ok {
		return rs.ForRun()
	}
	return src, func() {}
}

// DirSource reads datasets from a local directory.
type DirSource struct {
	Dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

func (s *DirSource) String() string { return s.Dir }

func (s *DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.Dir, filepath.FromSlash(name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &errs.NotFoundError{Kind: "dataset", Name: name}
		}
		return nil, err
	}
	return f, nil
}

// checkName keeps dataset names inside the source root.
func checkName(name string) error {
	clean := filepath.ToSlash(filepath.Clean(name))
	if name == "" || filepath.IsAbs(name) || clean == ".." || strings.HasPrefix(clean, "../") {
		return errs.InvalidArgument("dataset name %q escapes the source", name)
	}
	return nil
}

// hashFile returns the hex SHA-256 of the named dataset.
func hashFile(ctx context.Context, src Source, name string) (string, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
