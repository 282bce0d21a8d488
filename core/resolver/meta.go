// Package resolver holds the grammar of resolver reference identifiers.
//
// A resolver reference id looks like
//
//	cps1_14_cpsK|pair=1_vs_14|pos=483|baseA=G|A=1|B=14
//
// The first '|' field is the plain id; every later field is key=value.
// Adding a new discriminating pair is a data change in the reference FASTA.
package resolver

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultBaseA is used when an id carries no baseA key.
const DefaultBaseA = "G"

const sep = "|"

// Meta is the parsed metadata of one resolver reference.
// Pos is 1-based within the reference; 0 means the key was absent.
type Meta struct {
	ID    string
	Pair  string
	Pos   int
	BaseA string
	A     string
	B     string
}

// HasPos reports whether a diagnostic position was declared.
func (m Meta) HasPos() bool { return m.Pos > 0 }

// Call returns B when base equals BaseA and A otherwise.
// Comparison is exact; both sides are uppercase by construction.
func (m Meta) Call(base string) string {
	if base == m.BaseA {
		return m.B
	}
	return m.A
}

// Parse reads metadata from a resolver reference id. Unknown keys and
// fields without '=' are ignored.
func Parse(qid string) (Meta, error) {
	parts := strings.Split(qid, sep)
	m := Meta{ID: parts[0], BaseA: DefaultBaseA}
	for _, tok := range parts[1:] {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		switch key {
		case "pair":
			m.Pair = val
		case "pos":
			p, err := strconv.Atoi(val)
			if err != nil {
				return Meta{}, fmt.Errorf("resolver id %q: bad pos %q", qid, val)
			}
			m.Pos = p
		case "baseA":
			m.BaseA = strings.ToUpper(val)
		case "A":
			m.A = val
		case "B":
			m.B = val
		}
	}
	return m, nil
}

// String renders m in canonical field order. Parse(m.String()) == m.
func (m Meta) String() string {
	var b strings.Builder
	b.WriteString(m.ID)
	if m.Pair != "" {
		b.WriteString(sep + "pair=" + m.Pair)
	}
	if m.Pos != 0 {
		b.WriteString(sep + "pos=" + strconv.Itoa(m.Pos))
	}
	b.WriteString(sep + "baseA=" + m.BaseA)
	if m.A != "" {
		b.WriteString(sep + "A=" + m.A)
	}
	if m.B != "" {
		b.WriteString(sep + "B=" + m.B)
	}
	return b.String()
}
