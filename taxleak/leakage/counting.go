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

import "github.com/shenwei356/taxleak/taxleak/alignment"

// CountLedger counts every accepted record once:
// a correct record adds 1 to the correct accumulator of its gene,
// an incorrect one adds 1 to the incoming accumulator of the reference gene
// and 1 to the outgoing accumulator of the query gene.
func CountLedger(src alignment.Source, opt *Options) (*Ledger, *Stats, error) {
	l := NewLedger()
	stats := &Stats{}
	err := Walk(src, opt, stats, func(h Hit) {
		if h.Correct() {
			l.CountCorrect(h.Query, 1)
			return
		}
		l.CountIncorrect(h.Reference, true, 1)
		l.CountIncorrect(h.Query, false, 1)
	})
	if err != nil {
		return nil, stats, err
	}
	return l, stats, nil
}

// Totals counts accepted records per (taxon, gene).
type Totals map[TaxID]*Genes

// Increment adds one record to id.
func (ts Totals) Increment(id Identity) {
	c, ok := ts[id.Taxon]
	if !ok {
		c = NewGenes()
		ts[id.Taxon] = c
	}
	c.Increment(id.Gene)
}

// Get returns the count of id, and false if it was never seen.
func (ts Totals) Get(id Identity) (uint64, bool) {
	c, ok := ts[id.Taxon]
	if !ok {
		return 0, false
	}
	return c.Get(id.Gene)
}

// CountTotals is the pre-pass of the fractional scheme. It returns
// the numbers of records by query identity, i.e., the reads
// originating from every gene.
func CountTotals(src alignment.Source, opt *Options, stats *Stats) (Totals, error) {
	totals := make(Totals, 1024)
	err := Walk(src, opt, stats, func(h Hit) {
		totals.Increment(h.Query)
	})
	return totals, err
}

// CountFractionalLedger weights every record by the inverse of the number
// of reads originating from a gene, so every gene contributes at most one
// read in total. It reads the input twice.
//
// A correct record credits 1/total(query) to correct of the query gene.
// An incorrect one credits 1/total(query) to incoming of the reference
// gene, and 1/total(reference) to outgoing of the query gene. A reference
// gene without reads of its own has no total, and ZeroPolicy decides.
func CountFractionalLedger(src alignment.Source, opt *Options) (*Ledger, *Stats, error) {
	if opt == nil {
		opt = DefaultOptions()
	}

	var pre Stats
	totals, err := CountTotals(src, opt, &pre)
	if err != nil {
		return nil, &pre, err
	}

	l := NewLedger()
	stats := &Stats{}

	// weight returns 1/total, and false if the total is undefined.
	weight := func(id Identity) (float64, bool) {
		n, ok := totals.Get(id)
		if ok && n > 0 {
			return 1 / float64(n), true
		}
		stats.Undefined++
		if opt.OnUndefined != nil {
			opt.OnUndefined(id)
		}
		return 0, opt.ZeroPolicy == ZeroUndefined
	}

	err = Walk(src, opt, stats, func(h Hit) {
		if h.Correct() {
			if w, ok := weight(h.Query); ok {
				l.CountCorrect(h.Query, w)
			}
			return
		}
		if w, ok := weight(h.Query); ok {
			l.CountIncorrect(h.Reference, true, w)
		}
		if w, ok := weight(h.Reference); ok {
			l.CountIncorrect(h.Query, false, w)
		}
	})
	stats.Passes += pre.Passes
	if err != nil {
		return nil, stats, err
	}
	return l, stats, nil
}
