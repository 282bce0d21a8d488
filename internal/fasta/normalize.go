// internal/fasta/normalize.go
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Stem is the file name without directory, a trailing .gz, and its last extension.
func Stem(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Prepare returns a path the external tools can read directly: plain text
// with LF line endings. Gzip input or CRLF input is rewritten into a fresh
// directory under tmpDir, keeping the base name (minus .gz); otherwise path
// is returned as-is and copied is false. Each copy has a directory of its
// own, so same-named inputs never share a file or its .fai.
func Prepare(path, tmpDir string) (out string, copied bool, err error) {
	gz := strings.HasSuffix(path, ".gz")
	if !gz {
		crlf, err := HasCRLF(path)
		if err != nil {
			return "", false, err
		}
		if !crlf {
			return path, false, nil
		}
	}

	rc, err := openReader(path)
	if err != nil {
		return "", false, err
	}
	defer rc.Close()

	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", false, err
	}
	dir, err := os.MkdirTemp(tmpDir, Stem(path)+"-*")
	if err != nil {
		return "", false, err
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
		}
	}()

	dst := filepath.Join(dir, strings.TrimSuffix(filepath.Base(path), ".gz"))
	fh, err := os.Create(dst)
	if err != nil {
		return "", false, err
	}
	if err = copyLF(fh, rc); err != nil {
		_ = fh.Close()
		return "", false, fmt.Errorf("normalize %s: %w", path, err)
	}
	if err = fh.Close(); err != nil {
		return "", false, err
	}
	return dst, true, nil
}

// Release removes a copy made by Prepare along with anything the tools
// wrote next to it.
func Release(copyPath string) error {
	return os.RemoveAll(filepath.Dir(copyPath))
}

// HasCRLF reports whether the file contains any CRLF line ending.
func HasCRLF(path string) (bool, error) {
	fh, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer fh.Close()
	r := bufio.NewReaderSize(fh, 64<<10)
	// A CR can end one buffer-sized chunk of a long line and its LF start the next.
	pendingCR := false
	for {
		line, err := r.ReadSlice('\n')
		if bytes.HasSuffix(line, []byte("\r\n")) || (pendingCR && bytes.Equal(line, []byte("\n"))) {
			return true, nil
		}
		pendingCR = err == bufio.ErrBufferFull && bytes.HasSuffix(line, []byte("\r"))
		switch err {
		case nil, bufio.ErrBufferFull:
			continue
		case io.EOF:
			return false, nil
		default:
			return false, err
		}
	}
}

func copyLF(dst io.Writer, src io.Reader) error {
	r := bufio.NewReaderSize(src, 64<<10)
	w := bufio.NewWriterSize(dst, 64<<10)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimSuffix(line, []byte("\n"))
			line = bytes.TrimSuffix(line, []byte("\r"))
			if _, werr := w.Write(line); werr != nil {
				return werr
			}
			if werr := w.WriteByte('\n'); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

/* ---------------- small helpers ---------------- */

func openReader(path string) (io.ReadCloser, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}
