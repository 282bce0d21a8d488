package writers

import (
	"compress/gzip"
	"fmt"
	"os"
	"strings"
)

// WriteDebugTable stores a raw tabular alignment next to the sample's
// results. Non-empty data gets a trailing newline. With compress the table
// is written as path+".gz" and any plain copy is removed. It returns the
// path actually written.
func WriteDebugTable(path, data string, compress bool) (string, error) {
	if data != "" && !strings.HasSuffix(data, "\n") {
		data += "\n"
	}
	if !compress {
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			return "", fmt.Errorf("debug table: %w", err)
		}
		return path, nil
	}

	gzPath := path + ".gz"
	fh, err := os.Create(gzPath)
	if err != nil {
		return "", fmt.Errorf("debug table: %w", err)
	}
	zw := gzip.NewWriter(fh)
	if _, err := zw.Write([]byte(data)); err != nil {
		fh.Close()
		return "", fmt.Errorf("debug table: %w", err)
	}
	if err := zw.Close(); err != nil {
		fh.Close()
		return "", fmt.Errorf("debug table: %w", err)
	}
	if err := fh.Close(); err != nil {
		return "", fmt.Errorf("debug table: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("debug table: %w", err)
	}
	return gzPath, nil
}
