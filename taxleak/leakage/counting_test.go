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
	"path/filepath"
	"strings"
	"testing"

	"github.com/shenwei356/taxleak/taxleak/alignment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samText parses the same SAM text in every pass.
type samText string

func (s samText) Open() (alignment.Reader, error) {
	return alignment.NewSAMReader(strings.NewReader(string(s))), nil
}

// passes serves a different record list in every pass.
type passes struct {
	lists []alignment.Records
	i     int
}

func (p *passes) Open() (alignment.Reader, error) {
	recs := p.lists[p.i]
	p.i++
	return recs.Open()
}

func assertLeaks(t *testing.T, l *Ledger, id Identity, expected Leaks) {
	t.Helper()
	tx := l.Taxon(id.Taxon)
	require.NotNil(t, tx, "taxon %d", id.Taxon)
	leaks, ok := tx.Gene(id.Gene)
	require.True(t, ok, "%s unset", id)
	assert.InDelta(t, expected.Correct, leaks.Correct, 1e-12, "%s correct", id)
	assert.InDelta(t, expected.Incoming, leaks.Incoming, 1e-12, "%s incoming", id)
	assert.InDelta(t, expected.Outgoing, leaks.Outgoing, 1e-12, "%s outgoing", id)
}

func TestCountLedger(t *testing.T) {
	l, stats, err := CountLedger(scenario, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, l.Len())
	assertLeaks(t, l, Identity{1, 2}, Leaks{Correct: 1, Incoming: 1, Outgoing: 1})
	assertLeaks(t, l, Identity{3, 4}, Leaks{Incoming: 1, Outgoing: 1})
	assert.Equal(t, 1, l.Taxon(3).NumGenes())

	assert.Equal(t, uint64(3), stats.Accepted)
	assert.Equal(t, 1, stats.Passes)
}

func TestCountLedgerConservation(t *testing.T) {
	recs := alignment.Records{
		{QName: "1_0", RName: "2_0", MapQ: 30},
		{QName: "1_1", RName: "2_3", MapQ: 30},
		{QName: "2_0", RName: "1_0", MapQ: 30},
		{QName: "2_0", RName: "2_0", MapQ: 30},
		{QName: "3_5", RName: "1_1", MapQ: 30},
		{QName: "3_5", RName: "1_1", MapQ: 1},
	}
	l, stats, err := CountLedger(recs, nil)
	require.NoError(t, err)

	var sum Leaks
	for _, tx := range l.Ranked() {
		s := tx.Sum()
		sum.Correct += s.Correct
		sum.Incoming += s.Incoming
		sum.Outgoing += s.Outgoing
	}
	assert.Equal(t, float64(stats.Incorrect), sum.Incoming)
	assert.Equal(t, float64(stats.Incorrect), sum.Outgoing)
	assert.Equal(t, float64(stats.Correct), sum.Correct)
	assert.Equal(t, uint64(4), stats.Incorrect)
	assert.Equal(t, uint64(1), stats.LowMapQ)
}

func TestCountFractionalLedger(t *testing.T) {
	recs := alignment.Records{
		{QName: "1_2", RName: "1_2", MapQ: 10},
		{QName: "1_2", RName: "1_2", MapQ: 10},
		{QName: "1_2", RName: "3_4", MapQ: 10},
		{QName: "3_4", RName: "1_2", MapQ: 10},
		{QName: "3_4", RName: "3_4", MapQ: 2},
	}
	l, stats, err := CountFractionalLedger(recs, DefaultOptions())
	require.NoError(t, err)

	// reads originating from 1_2: 3, from 3_4: 1
	assertLeaks(t, l, Identity{1, 2}, Leaks{Correct: 2.0 / 3, Incoming: 1, Outgoing: 1})
	assertLeaks(t, l, Identity{3, 4}, Leaks{Incoming: 1.0 / 3, Outgoing: 1.0 / 3})

	assert.Equal(t, 2, stats.Passes)
	assert.Equal(t, uint64(1), stats.LowMapQ)
	assert.Equal(t, uint64(4), stats.Accepted)
	assert.Zero(t, stats.Undefined)
}

func TestCountFractionalLedgerBoundedWeights(t *testing.T) {
	recs := alignment.Records{
		{QName: "1_0", RName: "1_0", MapQ: 10},
		{QName: "1_0", RName: "2_0", MapQ: 10},
		{QName: "1_0", RName: "2_1", MapQ: 10},
		{QName: "2_0", RName: "1_0", MapQ: 10},
		{QName: "2_1", RName: "2_1", MapQ: 10},
	}
	l, _, err := CountFractionalLedger(recs, nil)
	require.NoError(t, err)

	// every query gene spreads at most one read over correct and incoming
	for _, tx := range l.Ranked() {
		for g := 0; g < tx.Len(); g++ {
			leaks, ok := tx.Gene(GeneID(g))
			if !ok {
				continue
			}
			assert.LessOrEqual(t, leaks.Correct, 1.0)
			assert.GreaterOrEqual(t, leaks.Incoming, 0.0)
			assert.GreaterOrEqual(t, leaks.Outgoing, 0.0)
		}
	}
	assertLeaks(t, l, Identity{1, 0}, Leaks{Correct: 1.0 / 3, Incoming: 1, Outgoing: 2})
	assertLeaks(t, l, Identity{2, 1}, Leaks{Correct: 1, Incoming: 1.0 / 3, Outgoing: 0})
}

func TestCountFractionalLedgerReferenceWithoutReads(t *testing.T) {
	recs := alignment.Records{
		{QName: "1_0", RName: "5_0", MapQ: 10},
		{QName: "1_0", RName: "5_0", MapQ: 10},
		{QName: "2_0", RName: "5_0", MapQ: 10},
		{QName: "2_0", RName: "2_0", MapQ: 10},
	}

	// 5_0 has no reads of its own, the outgoing weights are undefined
	var undefined []Identity
	opt := &Options{
		MinMapQ:     4,
		OnUndefined: func(id Identity) { undefined = append(undefined, id) },
	}
	l, stats, err := CountFractionalLedger(recs, opt)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.Undefined)
	assert.Equal(t, []Identity{{5, 0}, {5, 0}, {5, 0}}, undefined)

	assertLeaks(t, l, Identity{5, 0}, Leaks{Incoming: 1.5})
	assertLeaks(t, l, Identity{2, 0}, Leaks{Correct: 0.5})
	assert.Nil(t, l.Taxon(1))

	l, stats, err = CountFractionalLedger(recs, &Options{MinMapQ: 4, ZeroPolicy: ZeroUndefined})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.Undefined)
	assertLeaks(t, l, Identity{5, 0}, Leaks{Incoming: 1.5})
	assertLeaks(t, l, Identity{2, 0}, Leaks{Correct: 0.5})
	assertLeaks(t, l, Identity{1, 0}, Leaks{})
}

func TestCountFractionalLedgerStdin(t *testing.T) {
	// stdin can not be read in the second pass
	_, _, err := CountFractionalLedger(&alignment.Files{Files: []string{"-"}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, alignment.ErrInputUnreadable), "%s", err)
}

func TestBuildPairTableUnreadable(t *testing.T) {
	src := &alignment.Files{Files: []string{filepath.Join(t.TempDir(), "missing.sam")}}
	_, _, err := BuildPairTable(src, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, alignment.ErrInputUnreadable))

	_, _, err = CountFractionalLedger(src, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, alignment.ErrInputUnreadable))
}

func TestCountFractionalLedgerUndefined(t *testing.T) {
	second := alignment.Records{{QName: "1_0", RName: "2_0", MapQ: 10}}

	// the input changed between the passes
	src := &passes{lists: []alignment.Records{nil, second}}
	var undefined []Identity
	opt := &Options{
		MinMapQ:     4,
		OnUndefined: func(id Identity) { undefined = append(undefined, id) },
	}
	l, stats, err := CountFractionalLedger(src, opt)
	require.NoError(t, err)
	assert.Zero(t, l.Len())
	assert.Equal(t, uint64(2), stats.Undefined)
	assert.Equal(t, []Identity{{1, 0}, {2, 0}}, undefined)

	src = &passes{lists: []alignment.Records{nil, second}}
	l, stats, err = CountFractionalLedger(src, &Options{MinMapQ: 4, ZeroPolicy: ZeroUndefined})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Undefined)
	assertLeaks(t, l, Identity{2, 0}, Leaks{})
	assertLeaks(t, l, Identity{1, 0}, Leaks{})
}

func TestWalkMalformedIdentifier(t *testing.T) {
	recs := alignment.Records{
		{QName: "read1", RName: "1_2", MapQ: 10},
		{QName: "1_2", RName: "3_4", MapQ: 10},
	}

	var malformed []error
	opt := &Options{
		MinMapQ:     4,
		OnMalformed: func(err error) { malformed = append(malformed, err) },
	}
	table, stats, err := BuildPairTable(recs, opt)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, uint64(1), stats.Malformed)
	require.Len(t, malformed, 1)
	assert.True(t, errors.Is(malformed[0], ErrMalformedIdentifier))

	opt.Strict = true
	_, stats, err = BuildPairTable(recs, opt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedIdentifier))
	assert.Equal(t, uint64(1), stats.Malformed)
}

func TestWalkMalformedRecord(t *testing.T) {
	src := samText("1_2\t0\t3_4\t1\t10\n" +
		"1_2\t0\t3_4\t1\t10\t4M\t*\t0\t0\tACGT\tIIII\n")

	l, stats, err := CountLedger(src, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Records)
	assert.Equal(t, uint64(1), stats.Malformed)
	assertLeaks(t, l, Identity{3, 4}, Leaks{Incoming: 1})

	_, _, err = CountLedger(src, &Options{MinMapQ: 4, Strict: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, alignment.ErrMalformedRecord))
}

func TestWalkGeneMismatchAndReads(t *testing.T) {
	recs := alignment.Records{
		{QName: "1_2", RName: "3_2", MapQ: 10},
		{QName: "1_2", RName: "3_5", MapQ: 10},
		{QName: "1_2", RName: "1_2", MapQ: 10},
		{QName: "4_0", RName: "4_0", MapQ: 10},
	}

	var mismatched []Hit
	opt := &Options{
		MinMapQ:        4,
		CountReads:     true,
		OnGeneMismatch: func(h Hit) { mismatched = append(mismatched, h) },
	}

	var n int
	stats := &Stats{}
	require.NoError(t, Walk(recs, opt, stats, func(h Hit) { n++ }))

	assert.Equal(t, 4, n)
	assert.Equal(t, uint64(1), stats.GeneMismatch)
	assert.Equal(t, []Hit{hit(1, 2, 3, 5)}, mismatched)
	assert.Equal(t, uint64(2), stats.Reads)
}
