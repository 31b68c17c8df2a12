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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shenwei356/taxleak/taxleak/util"
)

// Unset is printed for genes never touched.
const Unset = "NA"

// ErrInvalidSnapshot means a pairwise table file can not be parsed.
var ErrInvalidSnapshot = errors.New("leakage: invalid pairwise table")

// Kinds of the three lines of a taxon in the taxon report.
const (
	KindCorrect  = "correct"
	KindIncoming = "incoming"
	KindOutgoing = "outgoing"
)

func writeGenes(buf *bytes.Buffer, c *Genes) {
	for g := 0; g < c.Len(); g++ {
		buf.WriteByte('\t')
		if n, ok := c.Get(GeneID(g)); ok {
			buf.WriteString(strconv.FormatUint(n, 10))
		} else {
			buf.WriteString(Unset)
		}
	}
}

// WritePairTable writes one line per pair:
// from, to, total, and the counts of gene 0 to the last touched gene.
// Pairs are ordered by PairTable.Ranked.
func WritePairTable(w io.Writer, t *PairTable) error {
	var buf bytes.Buffer
	for _, p := range t.Ranked() {
		c := t.Get(p)
		buf.Reset()
		fmt.Fprintf(&buf, "%d\t%d\t%d", p.From, p.To, c.Total())
		writeGenes(&buf, c)
		buf.WriteByte('\n')
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// ReadPairTable reads a table written by WritePairTable.
// The third column is ignored. Empty lines and lines starting with "#"
// are skipped, and repeated pairs are merged.
func ReadPairTable(r io.Reader) (*PairTable, error) {
	t := NewPairTable()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<16), 1<<30)

	var line string
	var items []string
	var lineNum int
	var p Pair
	var c *Genes
	var v uint64
	var err error
	for scanner.Scan() {
		lineNum++
		line = strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || line[0] == '#' {
			continue
		}

		util.SplitNByByte(line, '\t', strings.Count(line, "\t")+1, &items)
		if len(items) < 3 {
			return nil, fmt.Errorf("%w: line %d: %d columns (<3)", ErrInvalidSnapshot, lineNum, len(items))
		}

		if v, err = strconv.ParseUint(items[0], 10, 32); err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid taxon: %s", ErrInvalidSnapshot, lineNum, items[0])
		}
		p.From = TaxID(v)
		if v, err = strconv.ParseUint(items[1], 10, 32); err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid taxon: %s", ErrInvalidSnapshot, lineNum, items[1])
		}
		p.To = TaxID(v)

		c = t.genes(p)
		for g, s := range items[3:] {
			if s == Unset {
				continue
			}
			if v, err = strconv.ParseUint(s, 10, 64); err != nil {
				return nil, fmt.Errorf("%w: line %d: invalid count of gene %d: %s",
					ErrInvalidSnapshot, lineNum, g, s)
			}
			c.Add(GeneID(g), v)
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// WriteNormalized writes one line per taxon: to, total,
// and the ratios of gene 0 to the last touched gene.
// Taxa are ordered by RankNormalized.
func WriteNormalized(w io.Writer, profiles map[TaxID]*NormGenes) error {
	var buf bytes.Buffer
	for _, id := range RankNormalized(profiles) {
		c := profiles[id]
		buf.Reset()
		fmt.Fprintf(&buf, "%d\t%s", id, util.FormatFloat(c.Total()))
		for g := 0; g < c.Len(); g++ {
			buf.WriteByte('\t')
			if v, ok := c.Get(GeneID(g)); ok {
				buf.WriteString(util.FormatFloat(v))
			} else {
				buf.WriteString(Unset)
			}
		}
		buf.WriteByte('\n')
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// WriteTaxa writes three lines per taxon, one for each accumulator:
// taxon, good genes, leaked genes, kind, and the values of gene 0 to
// the last touched gene. Genes with any incoming leak count as leaked.
func WriteTaxa(w io.Writer, taxa []*Taxon) error {
	var buf bytes.Buffer
	var good, leaked int
	for _, t := range taxa {
		leaked = t.NumLeakedOnGenes(0)
		good = t.NumGenes() - leaked

		buf.Reset()
		for _, kind := range [3]string{KindCorrect, KindIncoming, KindOutgoing} {
			fmt.Fprintf(&buf, "%d\t%d\t%d\t%s", t.ID, good, leaked, kind)
			for g := 0; g < t.Len(); g++ {
				buf.WriteByte('\t')
				l, ok := t.Gene(GeneID(g))
				if !ok {
					buf.WriteString(Unset)
					continue
				}
				switch kind {
				case KindCorrect:
					buf.WriteString(util.FormatFloat(l.Correct))
				case KindIncoming:
					buf.WriteString(util.FormatFloat(l.Incoming))
				default:
					buf.WriteString(util.FormatFloat(l.Outgoing))
				}
			}
			buf.WriteByte('\n')
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary writes one line per taxon with the read totals of all genes:
// taxon, total, correct, correct/total, outgoing, outgoing/total,
// incoming, incoming/total. Total is correct + outgoing, i.e., the reads
// coming from the taxon. Ratios of taxa without own reads are 0.
func WriteSummary(w io.Writer, taxa []*Taxon) error {
	var s Leaks
	var total float64
	frac := func(v float64) string {
		if total == 0 {
			return "0"
		}
		return strconv.FormatFloat(v/total, 'f', 6, 64)
	}
	for _, t := range taxa {
		s = t.Sum()
		total = s.Correct + s.Outgoing
		_, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", t.ID,
			util.FormatFloat(total),
			util.FormatFloat(s.Correct), frac(s.Correct),
			util.FormatFloat(s.Outgoing), frac(s.Outgoing),
			util.FormatFloat(s.Incoming), frac(s.Incoming))
		if err != nil {
			return err
		}
	}
	return nil
}

// MaskAll is printed in the gene column when a whole taxon is masked.
const MaskAll = "*"

// WriteMask writes the genes to mask. A taxon with fewer than minGenes good
// genes is masked as a whole ("taxon\t*"), otherwise every gene with
// incoming > threshold is listed as "taxon\tgene\tincoming".
// It returns the numbers of masked taxa and masked genes.
func WriteMask(w io.Writer, taxa []*Taxon, threshold float64, minGenes int) (int, int, error) {
	var nTaxa, nGenes int
	var err error
	for _, t := range taxa {
		if t.NumGoodGenes(threshold) < minGenes {
			nTaxa++
			if _, err = fmt.Fprintf(w, "%d\t%s\n", t.ID, MaskAll); err != nil {
				return nTaxa, nGenes, err
			}
			continue
		}
		for _, g := range t.LeakedGenes(threshold) {
			l, _ := t.Gene(g)
			nGenes++
			if _, err = fmt.Fprintf(w, "%d\t%d\t%s\n", t.ID, g, util.FormatFloat(l.Incoming)); err != nil {
				return nTaxa, nGenes, err
			}
		}
	}
	return nTaxa, nGenes, nil
}
