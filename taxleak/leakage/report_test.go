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
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotTable() *PairTable {
	table := NewPairTable()
	table.Add(hit(5, 0, 7, 0))
	table.Add(hit(5, 0, 7, 0))
	table.Add(hit(5, 1, 7, 1))
	table.Add(hit(5, 3, 8, 3))
	table.Add(hit(7, 0, 5, 0))
	return table
}

const snapshotText = "7\t5\t1\t1\n" +
	"5\t7\t3\t2\t1\n" +
	"5\t8\t1\tNA\tNA\tNA\t1\n"

func TestWritePairTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePairTable(&buf, snapshotTable()))
	assert.Equal(t, snapshotText, buf.String())
}

func TestPairTableRoundTrip(t *testing.T) {
	table := snapshotTable()
	// a pair whose counter is empty survives as a line without genes
	table.genes(Pair{From: 9, To: 9})

	var buf bytes.Buffer
	require.NoError(t, WritePairTable(&buf, table))
	assert.Contains(t, buf.String(), "9\t9\t0\n")

	table2, err := ReadPairTable(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Equal(t, table.Len(), table2.Len())
	table.Each(func(p Pair, c *Genes) {
		c2 := table2.Get(p)
		require.NotNil(t, c2, "%v", p)
		assert.True(t, c.Equal(c2), "%v", p)
	})

	// normalization from the reloaded table is identical
	p1, u1 := table.NormalizeIncoming(SkipUndefined, nil)
	p2, u2 := table2.NormalizeIncoming(SkipUndefined, nil)
	assert.Equal(t, u1, u2)
	assert.Equal(t, RankNormalized(p1), RankNormalized(p2))

	var b1, b2 bytes.Buffer
	require.NoError(t, WriteNormalized(&b1, p1))
	require.NoError(t, WriteNormalized(&b2, p2))
	assert.Equal(t, b1.String(), b2.String())
}

func TestReadPairTableMerge(t *testing.T) {
	data := "# from\tto\ttotal\n" +
		"\n" +
		"1\t2\t1\t1\n" +
		"1\t2\t99\tNA\t3\n" + // the total column is not trusted
		"3\t2\t0\t0\n"
	table, err := ReadPairTable(strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.True(t, table.Get(Pair{From: 1, To: 2}).Equal(genesOf(map[GeneID]uint64{0: 1, 1: 3})))

	// a zero count is touched
	n, ok := table.Get(Pair{From: 3, To: 2}).Get(0)
	assert.True(t, ok)
	assert.Zero(t, n)
}

func TestReadPairTableInvalid(t *testing.T) {
	for _, data := range []string{
		"1\t2\n",
		"a\t2\t1\t1\n",
		"1\t-2\t1\t1\n",
		"1\t2\t1\t1.5\n",
		"1\t2\t1\tx\n",
	} {
		_, err := ReadPairTable(strings.NewReader(data))
		require.Error(t, err, data)
		assert.True(t, errors.Is(err, ErrInvalidSnapshot), data)
	}
}

func TestWriteNormalized(t *testing.T) {
	a := NewNormGenes()
	a.Add(0, 0.5)
	a.Add(2, 0.25)
	b := NewNormGenes()
	b.Add(1, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteNormalized(&buf, map[TaxID]*NormGenes{2: a, 1: b}))
	assert.Equal(t, "2\t0.75\t0.5\tNA\t0.25\n1\t1\tNA\t1\n", buf.String())
}

func TestWriteTaxa(t *testing.T) {
	l, _, err := CountLedger(scenario, DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTaxa(&buf, l.Ranked()))
	assert.Equal(t, "1\t0\t1\tcorrect\tNA\tNA\t1\n"+
		"1\t0\t1\tincoming\tNA\tNA\t1\n"+
		"1\t0\t1\toutgoing\tNA\tNA\t1\n"+
		"3\t0\t1\tcorrect\tNA\tNA\tNA\tNA\t0\n"+
		"3\t0\t1\tincoming\tNA\tNA\tNA\tNA\t1\n"+
		"3\t0\t1\toutgoing\tNA\tNA\tNA\tNA\t1\n", buf.String())
}

func TestWriteSummary(t *testing.T) {
	l, _, err := CountLedger(scenario, DefaultOptions())
	require.NoError(t, err)

	// a taxon only receiving leaks
	l.CountIncorrect(Identity{9, 0}, true, 2)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, []*Taxon{l.Taxon(1), l.Taxon(3), l.Taxon(9)}))
	assert.Equal(t, "1\t2\t1\t0.500000\t1\t0.500000\t1\t0.500000\n"+
		"3\t1\t0\t0.000000\t1\t1.000000\t1\t1.000000\n"+
		"9\t0\t0\t0\t0\t0\t2\t0\n", buf.String())
}

func TestWriteMask(t *testing.T) {
	l := NewLedger()
	for g := GeneID(0); g < 4; g++ {
		l.CountCorrect(Identity{1, g}, 1)
	}
	l.CountIncorrect(Identity{1, 1}, true, 20)
	l.CountIncorrect(Identity{1, 2}, true, 5)
	l.CountIncorrect(Identity{2, 0}, true, 50)

	var buf bytes.Buffer
	nTaxa, nGenes, err := WriteMask(&buf, []*Taxon{l.Taxon(1), l.Taxon(2)}, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, "1\t1\t20\n2\t*\n", buf.String())
	assert.Equal(t, 1, nTaxa)
	assert.Equal(t, 1, nGenes)

	// nothing is masked with loose thresholds
	buf.Reset()
	nTaxa, nGenes, err = WriteMask(&buf, []*Taxon{l.Taxon(1), l.Taxon(2)}, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
	assert.Zero(t, nTaxa+nGenes)
}
