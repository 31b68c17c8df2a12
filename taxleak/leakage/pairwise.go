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
	"fmt"

	"github.com/shenwei356/taxleak/taxleak/alignment"
	"github.com/twotwotwo/sorts"
)

// Pair is an ordered leakage key: reads truly from From were assigned to To.
// A->B and B->A are different pairs.
type Pair struct {
	From TaxID
	To   TaxID
}

// PairTable holds per-gene counts of mis-assigned reads for every pair.
// Genes are indexed by the gene of the To taxon.
type PairTable struct {
	m map[Pair]*Genes
}

// NewPairTable returns an empty table.
func NewPairTable() *PairTable {
	return &PairTable{m: make(map[Pair]*Genes, 1024)}
}

// genes returns the counter of a pair, creating it if needed.
func (t *PairTable) genes(p Pair) *Genes {
	c, ok := t.m[p]
	if !ok {
		c = NewGenes()
		t.m[p] = c
	}
	return c
}

// Add files a resolved record. Correctly assigned reads are ignored.
// It returns true if the record is counted.
func (t *PairTable) Add(h Hit) bool {
	if h.Correct() {
		return false
	}
	t.genes(Pair{From: h.Query.Taxon, To: h.Reference.Taxon}).Increment(h.Reference.Gene)
	return true
}

// Get returns the counter of a pair, or nil.
func (t *PairTable) Get(p Pair) *Genes {
	return t.m[p]
}

// Len returns the number of pairs.
func (t *PairTable) Len() int {
	return len(t.m)
}

// Each calls fn for every pair in random order.
func (t *PairTable) Each(fn func(p Pair, c *Genes)) {
	for p, c := range t.m {
		fn(p, c)
	}
}

// MergeFrom merges all pairs of other into t.
func (t *PairTable) MergeFrom(other *PairTable) {
	for p, c := range other.m {
		t.genes(p).MergeFrom(c)
	}
}

// BuildPairTable counts mis-assigned reads per pair in one pass.
func BuildPairTable(src alignment.Source, opt *Options) (*PairTable, *Stats, error) {
	t := NewPairTable()
	stats := &Stats{}
	err := Walk(src, opt, stats, func(h Hit) { t.Add(h) })
	if err != nil {
		return nil, stats, err
	}
	return t, stats, nil
}

// TotalOutgoing merges, for every taxon, the counters of all pairs
// leaving it.
func (t *PairTable) TotalOutgoing() map[TaxID]*Genes {
	totals := make(map[TaxID]*Genes, len(t.m))
	for p, c := range t.m {
		total, ok := totals[p.From]
		if !ok {
			total = NewGenes()
			totals[p.From] = total
		}
		total.MergeFrom(c)
	}
	return totals
}

// NormalizeIncoming divides the counter of every pair by the outgoing total
// of its From taxon, gene by gene, and accumulates the ratios on the To taxon.
// Undefined ratios are handled by policy and reported to fn, if not nil.
// It returns the profiles and the number of undefined ratios.
func (t *PairTable) NormalizeIncoming(policy ZeroPolicy,
	fn func(p Pair, g GeneID)) (map[TaxID]*NormGenes, int) {
	totals := t.TotalOutgoing()
	profiles := make(map[TaxID]*NormGenes, len(totals))

	var undefined int
	for p, c := range t.m {
		total, ok := totals[p.From]
		if !ok {
			panic(fmt.Sprintf("leakage: no outgoing total for taxon %d", p.From))
		}

		profile, ok := profiles[p.To]
		if !ok {
			profile = NewNormGenes()
			profiles[p.To] = profile
		}

		var report func(g GeneID)
		if fn != nil {
			pair := p
			report = func(g GeneID) { fn(pair, g) }
		}
		undefined += profile.MergeNormalizedFromCounts(c, total, policy, report)
	}
	return profiles, undefined
}

// ------------------------------------------------------------------

type rankedPair struct {
	pair  Pair
	total uint64
}

type rankedPairs []rankedPair

func (s rankedPairs) Len() int      { return len(s) }
func (s rankedPairs) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s rankedPairs) Less(i, j int) bool {
	a, b := &s[i], &s[j]
	if a.pair.To != b.pair.To {
		return a.pair.To < b.pair.To
	}
	if a.total != b.total {
		return a.total < b.total
	}
	return a.pair.From < b.pair.From
}

// Ranked returns pairs grouped by ascending To taxon, then
// ascending total count and From taxon.
func (t *PairTable) Ranked() []Pair {
	rs := make(rankedPairs, 0, len(t.m))
	for p, c := range t.m {
		rs = append(rs, rankedPair{pair: p, total: c.Total()})
	}
	sorts.Quicksort(rs)

	pairs := make([]Pair, len(rs))
	for i, r := range rs {
		pairs[i] = r.pair
	}
	return pairs
}

type rankedProfile struct {
	taxon TaxID
	total float64
}

type rankedProfiles []rankedProfile

func (s rankedProfiles) Len() int      { return len(s) }
func (s rankedProfiles) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s rankedProfiles) Less(i, j int) bool {
	if s[i].total != s[j].total {
		return s[i].total < s[j].total
	}
	return s[i].taxon < s[j].taxon
}

// RankNormalized orders taxa by ascending normalized incoming total.
func RankNormalized(profiles map[TaxID]*NormGenes) []TaxID {
	rs := make(rankedProfiles, 0, len(profiles))
	for id, c := range profiles {
		rs = append(rs, rankedProfile{taxon: id, total: c.Total()})
	}
	sorts.Quicksort(rs)

	ids := make([]TaxID, len(rs))
	for i, r := range rs {
		ids[i] = r.taxon
	}
	return ids
}
