// internal/writers/jsonl.go
package writers

import (
	"encoding/json"
	"io"

	"swineotype/internal/jsonlutil"
	"swineotype/internal/report"
)

// StartRecordJSONLWriter streams each report.Record as one JSON line (v1),
// stamped with runID.
func StartRecordJSONLWriter(out io.Writer, bufSize int, runID string) (chan<- report.Record, <-chan error) {
	return jsonlutil.Start[report.Record](out, bufSize,
		func(enc *json.Encoder, r report.Record) error {
			return enc.Encode(r.API(runID))
		},
		IsBrokenPipe,
	)
}
