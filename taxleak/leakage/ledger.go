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

import "github.com/twotwotwo/sorts"

// Leaks holds the three accumulators of a gene.
type Leaks struct {
	Correct  float64 // reads correctly assigned here
	Incoming float64 // reads from elsewhere assigned here
	Outgoing float64 // reads from here assigned elsewhere
}

type leakSlot struct {
	Leaks
	set bool
}

// Taxon holds the per-gene leak triples of a taxon.
type Taxon struct {
	ID    TaxID
	slots []leakSlot
}

// NewTaxon returns a taxon without genes.
func NewTaxon(id TaxID) *Taxon {
	return &Taxon{ID: id}
}

// touch grows the gene list if needed and marks gene g as observed.
func (t *Taxon) touch(g GeneID) *Leaks {
	if int(g) >= len(t.slots) {
		if int(g) < cap(t.slots) {
			t.slots = t.slots[:int(g)+1]
		} else {
			slots := make([]leakSlot, int(g)+1, 2*int(g)+2)
			copy(slots, t.slots)
			t.slots = slots
		}
	}
	s := &t.slots[g]
	s.set = true
	return &s.Leaks
}

// AddCorrect adds w to the correct accumulator of gene g.
func (t *Taxon) AddCorrect(g GeneID, w float64) {
	t.touch(g).Correct += w
}

// AddIncorrect adds w to the incoming or outgoing accumulator of gene g.
func (t *Taxon) AddIncorrect(g GeneID, incoming bool, w float64) {
	l := t.touch(g)
	if incoming {
		l.Incoming += w
	} else {
		l.Outgoing += w
	}
}

// Gene returns the triple of gene g, and false if it was never touched.
func (t *Taxon) Gene(g GeneID) (Leaks, bool) {
	if int(g) >= len(t.slots) {
		return Leaks{}, false
	}
	s := t.slots[g]
	return s.Leaks, s.set
}

// Len returns the number of slots, i.e., the highest touched gene + 1.
func (t *Taxon) Len() int {
	return len(t.slots)
}

// NumGenes returns the number of touched genes.
func (t *Taxon) NumGenes() int {
	var n int
	for i := range t.slots {
		if t.slots[i].set {
			n++
		}
	}
	return n
}

// NumLeakedOnGenes returns the number of genes with incoming > threshold.
func (t *Taxon) NumLeakedOnGenes(threshold float64) int {
	var n int
	for i := range t.slots {
		if t.slots[i].set && t.slots[i].Incoming > threshold {
			n++
		}
	}
	return n
}

// NumGoodGenes returns the number of touched genes not leaked on.
func (t *Taxon) NumGoodGenes(threshold float64) int {
	return t.NumGenes() - t.NumLeakedOnGenes(threshold)
}

// TotalIncomingLeaks sums incoming values of leaked genes.
func (t *Taxon) TotalIncomingLeaks(threshold float64) float64 {
	var total float64
	for i := range t.slots {
		if t.slots[i].set && t.slots[i].Incoming > threshold {
			total += t.slots[i].Incoming
		}
	}
	return total
}

// LeakedGenes returns genes with incoming > threshold, in ascending order.
func (t *Taxon) LeakedGenes(threshold float64) []GeneID {
	genes := make([]GeneID, 0, 8)
	for i := range t.slots {
		if t.slots[i].set && t.slots[i].Incoming > threshold {
			genes = append(genes, GeneID(i))
		}
	}
	return genes
}

// Sum adds up the triples of all genes.
func (t *Taxon) Sum() Leaks {
	var sum Leaks
	for i := range t.slots {
		if !t.slots[i].set {
			continue
		}
		sum.Correct += t.slots[i].Correct
		sum.Incoming += t.slots[i].Incoming
		sum.Outgoing += t.slots[i].Outgoing
	}
	return sum
}

// ------------------------------------------------------------------

// Ledger holds per-taxon leak triples.
type Ledger struct {
	taxa map[TaxID]*Taxon
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{taxa: make(map[TaxID]*Taxon, 1024)}
}

func (l *Ledger) taxon(id TaxID) *Taxon {
	t, ok := l.taxa[id]
	if !ok {
		t = NewTaxon(id)
		l.taxa[id] = t
	}
	return t
}

// CountCorrect credits w to the correct accumulator of id.
func (l *Ledger) CountCorrect(id Identity, w float64) {
	l.taxon(id.Taxon).AddCorrect(id.Gene, w)
}

// CountIncorrect credits w to the incoming or outgoing accumulator of id.
func (l *Ledger) CountIncorrect(id Identity, incoming bool, w float64) {
	l.taxon(id.Taxon).AddIncorrect(id.Gene, incoming, w)
}

// Taxon returns a taxon, or nil.
func (l *Ledger) Taxon(id TaxID) *Taxon {
	return l.taxa[id]
}

// Len returns the number of taxa.
func (l *Ledger) Len() int {
	return len(l.taxa)
}

type taxaByID []*Taxon

func (s taxaByID) Len() int           { return len(s) }
func (s taxaByID) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s taxaByID) Less(i, j int) bool { return s[i].ID < s[j].ID }

// Taxa returns all taxa in ascending order of taxon id.
func (l *Ledger) Taxa() []*Taxon {
	taxa := make(taxaByID, 0, len(l.taxa))
	for _, t := range l.taxa {
		taxa = append(taxa, t)
	}
	sorts.Quicksort(taxa)
	return taxa
}

type rankedTaxon struct {
	taxon  *Taxon
	leaked int
	total  float64
}

type rankedTaxa []rankedTaxon

func (s rankedTaxa) Len() int      { return len(s) }
func (s rankedTaxa) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s rankedTaxa) Less(i, j int) bool {
	a, b := &s[i], &s[j]
	if a.leaked != b.leaked {
		return a.leaked > b.leaked
	}
	if a.total != b.total {
		return a.total > b.total
	}
	return a.taxon.ID < b.taxon.ID
}

// Ranked returns taxa with more leaked genes first, then with more incoming
// leaks, then by taxon id. Any gene with incoming leaks counts.
func (l *Ledger) Ranked() []*Taxon {
	rs := make(rankedTaxa, 0, len(l.taxa))
	for _, t := range l.taxa {
		rs = append(rs, rankedTaxon{
			taxon:  t,
			leaked: t.NumLeakedOnGenes(0),
			total:  t.TotalIncomingLeaks(0),
		})
	}
	sorts.Quicksort(rs)

	taxa := make([]*Taxon, len(rs))
	for i, r := range rs {
		taxa[i] = r.taxon
	}
	return taxa
}
