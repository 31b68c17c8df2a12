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
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shenwei356/taxleak/taxleak/leakage"
	"github.com/spf13/cobra"
)

var pairwiseCmd = &cobra.Command{
	Use:   "pairwise",
	Short: "Count mis-assigned reads for every ordered pair of taxa",
	Long: `Count mis-assigned reads for every ordered pair of taxa

A read simulated from taxon A and assigned to taxon B counts for the pair
A -> B, on the gene of B it was assigned to. Correctly assigned reads are
not counted.

Output format (tab-delimited, no header):
  1. from, taxid the reads came from
  2. to, taxid the reads were assigned to
  3. total, number of reads of all genes
  4+. number of reads of gene 0, 1, ..., "NA" for genes without any read.

Lines are sorted by to, total, and from, in ascending order.
The output can be reloaded by "taxleak normalize -s".

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

		files := getInputFiles(cmd, args, opt)
		aopt := getAccountingOptions(cmd, opt)
		names := loadTaxonNames(cmd, opt)
		topN := getFlagNonNegativeInt(cmd, "top")
		outFile := getFlagString(cmd, "out-file")

		// ---------------------------------------------------------------

		if outputLog {
			log.Info("counting mis-assigned reads ...")
		}
		src := newFileSource(files, opt)
		table, stats, err := leakage.BuildPairTable(src, aopt)
		checkError(err)
		src.wait()

		if outputLog {
			logStats(stats, aopt)
			log.Infof("  %s pairs of taxa with leaks", humanize.Comma(int64(table.Len())))
		}

		// ---------------------------------------------------------------

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		checkError(leakage.WritePairTable(outfh, table))
		closeStream(outfh, gw, w)

		if outputLog {
			logTopPairs(table, topN, names)
		}

		saveRunInfo(cmd, opt, len(files), aopt, false, stats)
	},
}

func init() {
	RootCmd.AddCommand(pairwiseCmd)

	addAccountingFlags(pairwiseCmd)

	pairwiseCmd.SetUsageTemplate(usageTemplate("{[-I <sam dir>] | <sam/bam files> | -X <file list>} [-o pairwise.tsv.gz]"))
}
