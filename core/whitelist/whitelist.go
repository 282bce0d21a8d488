// core/whitelist/whitelist.go
package whitelist

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// GeneClass tags a whitelist allele as a wzx or wzy allele.
type GeneClass string

const (
	GeneNone GeneClass = ""
	GeneWzx  GeneClass = "wzx"
	GeneWzy  GeneClass = "wzy"
)

const typeTokenPrefix = "[type_id="

// Alleles maps whitelist identifiers to their serotype label and gene class.
// An identifier with no [type_id=...] token maps to the empty label.
type Alleles struct {
	Label     map[string]string
	GeneClass map[string]GeneClass
}

// LabelOf returns the serotype label for id and whether one was declared.
func (a Alleles) LabelOf(id string) (string, bool) {
	l := a.Label[id]
	return l, l != ""
}

// Len is the number of identifiers seen.
func (a Alleles) Len() int { return len(a.Label) }

// Parse reads the whitelist FASTA at path.
func Parse(path string) (Alleles, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Alleles{}, fmt.Errorf("whitelist: %w", err)
	}
	defer func() { _ = fh.Close() }()
	a, err := Read(fh)
	if err != nil {
		return Alleles{}, fmt.Errorf("whitelist %s: %w", path, err)
	}
	return a, nil
}

// Read parses whitelist records from r.
func Read(r io.Reader) (Alleles, error) {
	a := Alleles{
		Label:     make(map[string]string),
		GeneClass: make(map[string]GeneClass),
	}
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNAredundant)))
	for sc.Next() {
		s := sc.Seq()
		fields := strings.Fields(s.Name() + " " + s.Description())
		if len(fields) == 0 {
			continue
		}
		id := fields[0]
		a.Label[id] = typeLabel(fields)
		a.GeneClass[id] = Classify(id)
	}
	if err := sc.Error(); err != nil {
		return Alleles{}, err
	}
	return a, nil
}

// typeLabel returns the value of the first [type_id=LABEL] token.
func typeLabel(fields []string) string {
	for _, tok := range fields {
		if strings.HasPrefix(tok, typeTokenPrefix) && strings.HasSuffix(tok, "]") {
			return tok[len(typeTokenPrefix) : len(tok)-1]
		}
	}
	return ""
}

// Classify derives the gene class from an allele identifier; wzy wins over wzx.
func Classify(id string) GeneClass {
	low := strings.ToLower(id)
	switch {
	case strings.Contains(low, "wzy"):
		return GeneWzy
	case strings.Contains(low, "wzx"):
		return GeneWzx
	}
	return GeneNone
}
