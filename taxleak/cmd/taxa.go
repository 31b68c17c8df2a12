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
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shenwei356/taxleak/taxleak/leakage"
	"github.com/shenwei356/taxleak/taxleak/util"
	"github.com/spf13/cobra"
)

var taxaCmd = &cobra.Command{
	Use:   "taxa",
	Short: "Report per-gene leaks of every taxon",
	Long: `Report per-gene leaks of every taxon

Every gene of a taxon has three accumulators:
  correct,  reads of the gene assigned to itself
  incoming, reads of other genes or taxa assigned to the gene
  outgoing, reads of the gene assigned elsewhere

By default, every read counts 1. With --fractional, the input is read twice
and a read counts 1/n, where n is the number of reads of its own gene
(for correct and incoming) or of the reference gene (for outgoing).
So every gene contributes at most one read in total. Stdin is not
supported in this mode.
A reference gene without reads of its own has no total. Its outgoing
credits are skipped by default, or counted as 0 with --zero-policy zero.
The two schemes give different numbers, do not compare them.

A gene with any incoming leak is leaked on, the others are good.

Output format (tab-delimited, no header), three lines per taxon:
  1. taxid
  2. number of good genes
  3. number of leaked genes
  4. kind: correct, incoming, or outgoing
  5+. values of gene 0, 1, ..., "NA" for genes without reads.

Taxa with more leaked genes come first, then the ones with more incoming
leaks. Use --reverse for the opposite order.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------

		fractional := getFlagBool(cmd, "fractional")
		reverse := getFlagBool(cmd, "reverse")
		plotFile := getFlagString(cmd, "plot")
		bins := getFlagPositiveInt(cmd, "plot-bins")
		names := loadTaxonNames(cmd, opt)
		topN := getFlagNonNegativeInt(cmd, "top")
		outFile := getFlagString(cmd, "out-file")

		ledger, taxa := countTaxa(cmd, args, opt, fractional)

		// ---------------------------------------------------------------

		if reverse {
			util.Reverse(taxa)
		}

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		checkError(leakage.WriteTaxa(outfh, taxa))
		closeStream(outfh, gw, w)

		if reverse {
			util.Reverse(taxa)
		}

		// ---------------------------------------------------------------

		leaked := make([]float64, len(taxa))
		for i, t := range taxa {
			leaked[i] = float64(t.NumLeakedOnGenes(0))
		}

		if outputLog {
			logDistribution("leaked genes per taxon", leaked)
			logTopTaxa(taxa, topN, names)
		}

		if plotFile != "" {
			plotFile = expandPath(plotFile)
			checkError(plotHistogram(plotFile, leaked, bins,
				fmt.Sprintf("%s taxa", humanize.Comma(int64(ledger.Len()))),
				"leaked genes", "taxa"))
			if outputLog {
				log.Infof("histogram of leaked genes saved to: %s", plotFile)
			}
		}
	},
}

// countTaxa fills a ledger from the input alignments, with the raw or the
// fractional scheme, and returns the ranked taxa. It also saves the
// stats file.
func countTaxa(cmd *cobra.Command, args []string, opt *Options, fractional bool) (*leakage.Ledger, []*leakage.Taxon) {
	outputLog := opt.Verbose || opt.Log2File

	files := getInputFiles(cmd, args, opt)
	aopt := getAccountingOptions(cmd, opt)
	if cmd.Flags().Lookup("zero-policy") != nil {
		policy, ok := leakage.ParseZeroPolicy(getFlagString(cmd, "zero-policy"))
		if !ok {
			checkError(fmt.Errorf("invalid value of --zero-policy: %s, available: skip, zero",
				getFlagString(cmd, "zero-policy")))
		}
		aopt.ZeroPolicy = policy
	}

	if fractional {
		checkError(checkTwoPassInput(files))
	}

	src := newFileSource(files, opt)

	var ledger *leakage.Ledger
	var stats *leakage.Stats
	var err error
	if fractional {
		if outputLog {
			log.Info("counting reads with fractional weights ...")
		}
		src.rounds = []string{
			"  round 1/2: counting reads of every gene ...",
			"  round 2/2: weighting reads ...",
		}
		ledger, stats, err = leakage.CountFractionalLedger(src, aopt)
	} else {
		if outputLog {
			log.Info("counting reads ...")
		}
		ledger, stats, err = leakage.CountLedger(src, aopt)
	}
	checkError(err)
	src.wait()

	if outputLog {
		logStats(stats, aopt)
		log.Infof("  %s taxa", humanize.Comma(int64(ledger.Len())))
	}

	saveRunInfo(cmd, opt, len(files), aopt, fractional, stats)

	return ledger, ledger.Ranked()
}

func init() {
	RootCmd.AddCommand(taxaCmd)

	addAccountingFlags(taxaCmd)
	addLedgerFlags(taxaCmd)

	taxaCmd.Flags().BoolP("reverse", "", false,
		formatFlagUsage(`Output the least leaky taxa first.`))

	taxaCmd.Flags().StringP("plot", "", "",
		formatFlagUsage(`Plot a histogram of leaked genes per taxon to a file (.png, .pdf, .svg).`))

	taxaCmd.Flags().IntP("plot-bins", "", 50,
		formatFlagUsage(`Number of bins of the histogram.`))

	taxaCmd.SetUsageTemplate(usageTemplate("[--fractional] {[-I <sam dir>] | <sam/bam files> | -X <file list>} [-o taxa.tsv.gz]"))
}

// addLedgerFlags adds flags of commands counting per-taxon leaks.
func addLedgerFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("fractional", "", false,
		formatFlagUsage(`Weight every read by 1/(number of reads of the gene). The input is read twice, stdin is not supported.`))

	cmd.Flags().StringP("zero-policy", "", leakage.SkipUndefined.String(),
		formatFlagUsage(`With --fractional, how to treat reads assigned to genes without reads of their own. Available: skip, zero.`))
}
