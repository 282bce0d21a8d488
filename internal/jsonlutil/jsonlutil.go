// Package jsonlutil runs a JSON-lines encoder on its own goroutine.
package jsonlutil

import (
	"bufio"
	"encoding/json"
	"io"
)

// Start spins up a JSONL encoder goroutine for values of type T.
//   - encode: converts one value to its wire type and encodes it
//   - isBroken: recognizer for closed-pipe errors, which are swallowed
//
// Each line is flushed as soon as it is encoded so a watcher sees a
// sample as soon as it finishes. The returned error channel yields exactly
// one value after in is closed (or on the first failure). On failure the
// goroutine keeps draining in so senders never block.
func Start[T any](out io.Writer, bufSize int, encode func(*json.Encoder, T) error, isBroken func(error) bool) (chan<- T, <-chan error) {
	if bufSize <= 0 {
		bufSize = 16
	}
	in := make(chan T, bufSize)
	done := make(chan error, 1)

	go func() {
		bw := bufio.NewWriter(out)
		enc := json.NewEncoder(bw)
		var failed error
		for v := range in {
			if failed != nil {
				continue
			}
			if err := encode(enc, v); err != nil {
				failed = err
				continue
			}
			if err := bw.Flush(); err != nil {
				failed = err
			}
		}
		if failed == nil {
			failed = bw.Flush()
		}
		if failed != nil && isBroken(failed) {
			failed = nil
		}
		done <- failed
	}()

	return in, done
}
