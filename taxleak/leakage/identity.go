// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package leakage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shenwei356/taxleak/taxleak/alignment"
)

// TaxID is the taxon identifier encoded in read and reference names.
type TaxID uint32

// GeneID is the gene index, local to a taxon.
type GeneID uint32

// ErrMalformedIdentifier means a name does not start with two
// "_"-separated non-negative integers.
var ErrMalformedIdentifier = errors.New("leakage: malformed identifier")

// MaxGeneID is the largest gene id accepted. Counters of a taxon hold
// one slot per gene up to the highest one seen.
const MaxGeneID GeneID = 1<<24 - 1

// Identity is the (taxon, gene) pair decoded from a name.
type Identity struct {
	Taxon TaxID
	Gene  GeneID
}

func (id Identity) String() string {
	return fmt.Sprintf("%d_%d", id.Taxon, id.Gene)
}

// ParseIdentity decodes names like "<taxon>_<gene>[_...]".
// Only the first two fields are used.
func ParseIdentity(name string) (Identity, error) {
	var id Identity

	i := strings.IndexByte(name, '_')
	if i < 0 {
		return id, fmt.Errorf("%w: %q", ErrMalformedIdentifier, name)
	}
	first, rest := name[:i], name[i+1:]
	if j := strings.IndexByte(rest, '_'); j >= 0 {
		rest = rest[:j]
	}

	taxon, err := strconv.ParseUint(first, 10, 32)
	if err != nil {
		return id, fmt.Errorf("%w: %q: bad taxon id", ErrMalformedIdentifier, name)
	}
	gene, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return id, fmt.Errorf("%w: %q: bad gene id", ErrMalformedIdentifier, name)
	}
	if gene > uint64(MaxGeneID) {
		return id, fmt.Errorf("%w: %q: gene id > %d", ErrMalformedIdentifier, name, MaxGeneID)
	}

	id.Taxon = TaxID(taxon)
	id.Gene = GeneID(gene)
	return id, nil
}

// Hit is a resolved alignment record.
type Hit struct {
	Query     Identity // where the read truly comes from
	Reference Identity // where the aligner put it
}

// Correct tells whether the read was assigned to its own taxon and gene.
func (h Hit) Correct() bool {
	return h.Query == h.Reference
}

// Resolve decodes both names of an alignment record.
func Resolve(rec *alignment.Record) (Hit, error) {
	var h Hit
	var err error
	h.Query, err = ParseIdentity(rec.QName)
	if err != nil {
		return h, err
	}
	h.Reference, err = ParseIdentity(rec.RName)
	return h, err
}
