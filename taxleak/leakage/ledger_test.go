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
	"testing"

	"github.com/stretchr/testify/assert"
)

func testTaxon() *Taxon {
	tx := NewTaxon(1)
	tx.AddCorrect(0, 5)
	tx.AddIncorrect(2, true, 3)
	tx.AddIncorrect(2, false, 1)
	tx.AddIncorrect(4, true, 0.5)
	tx.AddIncorrect(5, false, 2)
	return tx
}

func TestTaxonGenes(t *testing.T) {
	tx := testTaxon()

	assert.Equal(t, 4, tx.NumGenes())
	assert.Equal(t, 6, tx.Len())

	for _, g := range []GeneID{1, 3, 6} {
		_, ok := tx.Gene(g)
		assert.False(t, ok, "gene %d", g)
	}

	l, ok := tx.Gene(2)
	assert.True(t, ok)
	assert.Equal(t, Leaks{Incoming: 3, Outgoing: 1}, l)

	// touched genes keep zeros
	l, ok = tx.Gene(5)
	assert.True(t, ok)
	assert.Equal(t, Leaks{Outgoing: 2}, l)

	assert.Equal(t, Leaks{Correct: 5, Incoming: 3.5, Outgoing: 3}, tx.Sum())
}

func TestTaxonThresholds(t *testing.T) {
	tx := testTaxon()

	tests := []struct {
		threshold float64
		leaked    int
		total     float64
		genes     []GeneID
	}{
		{-1, 4, 3.5, []GeneID{0, 2, 4, 5}},
		{0, 2, 3.5, []GeneID{2, 4}},
		{0.5, 1, 3, []GeneID{2}},
		{1, 1, 3, []GeneID{2}},
		{3, 0, 0, []GeneID{}},
		{10, 0, 0, []GeneID{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.leaked, tx.NumLeakedOnGenes(tt.threshold), "threshold %v", tt.threshold)
		assert.Equal(t, tt.total, tx.TotalIncomingLeaks(tt.threshold), "threshold %v", tt.threshold)
		assert.Equal(t, tt.genes, tx.LeakedGenes(tt.threshold), "threshold %v", tt.threshold)
		assert.Equal(t, tx.NumGenes(),
			tx.NumGoodGenes(tt.threshold)+tx.NumLeakedOnGenes(tt.threshold))
	}
}

func TestTaxonGrowKeepsValues(t *testing.T) {
	tx := NewTaxon(1)
	tx.AddCorrect(3, 1)
	tx.AddCorrect(1, 1)   // inside the slice, must not shrink it
	tx.AddCorrect(100, 1) // far beyond

	assert.Equal(t, 101, tx.Len())
	assert.Equal(t, 3, tx.NumGenes())
	l, ok := tx.Gene(3)
	assert.True(t, ok)
	assert.Equal(t, 1.0, l.Correct)
}

func TestLedgerRanked(t *testing.T) {
	l := NewLedger()

	// taxon 1: 2 leaked genes, 4 incoming
	l.CountIncorrect(Identity{1, 0}, true, 1)
	l.CountIncorrect(Identity{1, 1}, true, 3)
	// taxon 2: 2 leaked genes, 6 incoming
	l.CountIncorrect(Identity{2, 0}, true, 2)
	l.CountIncorrect(Identity{2, 1}, true, 4)
	// taxon 3: 3 leaked genes, 1 incoming
	l.CountIncorrect(Identity{3, 0}, true, 0.5)
	l.CountIncorrect(Identity{3, 1}, true, 0.25)
	l.CountIncorrect(Identity{3, 2}, true, 0.25)
	// taxon 4: clean
	l.CountCorrect(Identity{4, 0}, 1)
	l.CountIncorrect(Identity{4, 0}, false, 1)
	// taxon 0: ties with taxon 2
	l.CountIncorrect(Identity{0, 5}, true, 3)
	l.CountIncorrect(Identity{0, 6}, true, 3)

	assert.Equal(t, 5, l.Len())

	var ids []TaxID
	for _, tx := range l.Ranked() {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []TaxID{3, 0, 2, 1, 4}, ids)

	ids = ids[:0]
	for _, tx := range l.Taxa() {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []TaxID{0, 1, 2, 3, 4}, ids)

	assert.Nil(t, l.Taxon(99))
	assert.Equal(t, 1, l.Taxon(4).NumGoodGenes(0))
}
