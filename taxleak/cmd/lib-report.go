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

package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/taxleak/taxleak/leakage"
	"github.com/shenwei356/util/cliutil"
	"github.com/spf13/cobra"
	"github.com/twotwotwo/sorts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// taxonNames maps taxids to names.
type taxonNames map[string]string

func loadTaxonNames(cmd *cobra.Command, opt *Options) taxonNames {
	files := getFlagStringSlice(cmd, "name-map")
	if len(files) == 0 {
		return nil
	}

	if opt.Verbose || opt.Log2File {
		log.Infof("loading name mapping file ...")
	}
	names := make(taxonNames, 1024)
	for _, file := range files {
		m, err := cliutil.ReadKVs(expandPath(file), false)
		if err != nil {
			checkError(errors.Wrap(err, file))
		}
		for k, v := range m {
			names[k] = v
		}
	}
	if opt.Verbose || opt.Log2File {
		log.Infof("%d pairs of name mapping values from %d file(s) loaded", len(names), len(files))
	}
	return names
}

// label returns "taxid (name)", or the taxid without a name.
func (m taxonNames) label(id leakage.TaxID) string {
	s := strconv.FormatUint(uint64(id), 10)
	if name, ok := m[s]; ok {
		return s + " (" + name + ")"
	}
	return s
}

// ------------------------------------------------------------------

type pairTotal struct {
	Pair  leakage.Pair
	Total uint64
}

type pairTotals []pairTotal

func (s pairTotals) Len() int      { return len(s) }
func (s pairTotals) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s pairTotals) Less(i, j int) bool {
	a, b := &s[i], &s[j]
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	if a.Pair.From != b.Pair.From {
		return a.Pair.From < b.Pair.From
	}
	return a.Pair.To < b.Pair.To
}

// topPairs returns the n pairs with the most mis-assigned reads.
func topPairs(t *leakage.PairTable, n int) []pairTotal {
	ps := make(pairTotals, 0, t.Len())
	t.Each(func(p leakage.Pair, c *leakage.Genes) {
		ps = append(ps, pairTotal{Pair: p, Total: c.Total()})
	})
	sorts.Quicksort(ps)
	if len(ps) > n {
		ps = ps[:n]
	}
	return ps
}

func logTopPairs(t *leakage.PairTable, n int, names taxonNames) {
	if n <= 0 || t.Len() == 0 {
		return
	}
	ps := topPairs(t, n)
	log.Infof("top %d leaking pairs:", len(ps))
	for i, p := range ps {
		log.Infof("  %d. %s -> %s: %s reads", i+1,
			names.label(p.Pair.From), names.label(p.Pair.To), humanize.Comma(int64(p.Total)))
	}
}

// logTopTaxa logs the first n taxa of a ranked list.
func logTopTaxa(taxa []*leakage.Taxon, n int, names taxonNames) {
	if n <= 0 || len(taxa) == 0 {
		return
	}
	if len(taxa) < n {
		n = len(taxa)
	}
	log.Infof("top %d leaky taxa:", n)
	for i, t := range taxa[:n] {
		log.Infof("  %d. %s: %d of %d genes leaked on, %s incoming reads", i+1,
			names.label(t.ID), t.NumLeakedOnGenes(0), t.NumGenes(),
			strconv.FormatFloat(t.TotalIncomingLeaks(0), 'f', 2, 64))
	}
}

// ------------------------------------------------------------------

func logStats(stats *leakage.Stats, aopt *leakage.Options) {
	log.Infof("  %s records read in %d pass(es)", humanize.Comma(int64(stats.Records)), stats.Passes)
	log.Infof("    unaligned: %s, mapping quality < %d: %s, malformed: %s",
		humanize.Comma(int64(stats.Unaligned)), aopt.MinMapQ,
		humanize.Comma(int64(stats.LowMapQ)), humanize.Comma(int64(stats.Malformed)))

	var pct float64
	if stats.Accepted > 0 {
		pct = float64(stats.Incorrect) / float64(stats.Accepted) * 100
	}
	log.Infof("    accepted: %s, correct: %s, incorrect: %s (%.2f%%), gene mismatch: %s",
		humanize.Comma(int64(stats.Accepted)), humanize.Comma(int64(stats.Correct)),
		humanize.Comma(int64(stats.Incorrect)), pct, humanize.Comma(int64(stats.GeneMismatch)))

	if aopt.CountReads {
		log.Infof("    distinct reads: %s", humanize.Comma(int64(stats.Reads)))
	}
	if stats.Undefined > 0 {
		log.Warningf("    undefined ratios: %s, %s", humanize.Comma(int64(stats.Undefined)),
			undefinedAction(aopt.ZeroPolicy))
	}
}

// saveRunInfo writes the stats file if --stats-file is given.
func saveRunInfo(cmd *cobra.Command, opt *Options, nFiles int, aopt *leakage.Options,
	fractional bool, stats *leakage.Stats) {
	file := getFlagString(cmd, "stats-file")
	if file == "" {
		return
	}

	info := &RunInfo{
		MainVersion: VERSION,
		Command:     cmd.Name(),
		Files:       nFiles,
		MinMapQ:     aopt.MinMapQ,
		Fractional:  fractional,
		ZeroPolicy:  aopt.ZeroPolicy.String(),
	}
	if stats != nil {
		info.Stats = *stats
	}
	checkError(writeRunInfo(expandPath(file), info))

	if opt.Verbose || opt.Log2File {
		log.Infof("stats saved to: %s", file)
	}
}

// ------------------------------------------------------------------

// logDistribution logs the mean, standard deviation and median of values.
func logDistribution(what string, values []float64) {
	if len(values) == 0 {
		return
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	log.Infof("%s: mean %.2f, stdev %.2f, median %.2f, max %.2f",
		what, mean, std, median, sorted[len(sorted)-1])
}

// plotHistogram plots a histogram of values. The image format
// is decided by the file extension, e.g., .png, .pdf, .svg.
func plotHistogram(file string, values []float64, bins int, title, xLabel, yLabel string) error {
	if len(values) == 0 {
		return fmt.Errorf("no data to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return errors.Wrap(err, "plot histogram")
	}
	p.Add(h)

	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}
