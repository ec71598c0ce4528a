package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// SaveFormFile copies the named multipart form file into dir and returns the
// temporary path. A missing optional field returns "" without error; callers
// decide which fields are required. The caller owns cleanup of the returned
// path (see RemoveTemp).
func SaveFormFile(r *http.Request, field, dir string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read form file %q: %w", field, err)
	}
	defer file.Close()

	tmp, err := os.CreateTemp(dir, "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", fmt.Errorf("create temp upload: %w", err)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("spool upload %q: %w", field, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp upload: %w", err)
	}

	return tmp.Name(), nil
}

// RemoveTemp removes spooled upload files, ignoring empty paths. It is safe
// to defer unconditionally so temp artifacts are cleaned on every exit path.
func RemoveTemp(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		_ = os.Remove(p)
	}
}
