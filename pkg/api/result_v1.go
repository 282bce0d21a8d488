// pkg/api/result_v1.go
package api

// SampleResultV1 is the stable JSON/JSONL schema for one typed assembly.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
type SampleResultV1 struct {
	Sample        string  `json:"sample"`
	Stage1Top     string  `json:"stage1_top"`
	RefID         string  `json:"ref_id,omitempty"`
	Contig        string  `json:"contig,omitempty"`
	ContigPos     int     `json:"contig_pos,omitempty"`
	Strand        string  `json:"strand,omitempty"` // "+"/"-"
	Base          string  `json:"base,omitempty"`
	Status        string  `json:"status"`
	FinalSerotype string  `json:"final_serotype,omitempty"`
	Stage2Status  string  `json:"stage2_status,omitempty"`
	Fraction      float64 `json:"fraction"`
	Delta         float64 `json:"delta"`
	Error         string  `json:"error,omitempty"`
	RunID         string  `json:"run_id,omitempty"`
}
