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

	"github.com/shenwei356/taxleak/taxleak/leakage"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize correct and mis-assigned reads of every taxon",
	Long: `Summarize correct and mis-assigned reads of every taxon

Every read counts 1.

Output format (tab-delimited, no header):
  1. taxid
  2. total, reads from the taxon (correct + outgoing)
  3. correct, reads assigned to their own genes
  4. correct / total
  5. outgoing, reads assigned elsewhere
  6. outgoing / total
  7. incoming, reads from elsewhere assigned to the taxon
  8. incoming / total

Ratios of taxa without any own reads are 0.
Lines are sorted by taxid.

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

		names := loadTaxonNames(cmd, opt)
		topN := getFlagNonNegativeInt(cmd, "top")
		outFile := getFlagString(cmd, "out-file")

		ledger, ranked := countTaxa(cmd, args, opt, false)

		// ---------------------------------------------------------------

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		checkError(leakage.WriteSummary(outfh, ledger.Taxa()))
		closeStream(outfh, gw, w)

		if outputLog {
			outFrac := make([]float64, 0, len(ranked))
			var s leakage.Leaks
			for _, t := range ranked {
				s = t.Sum()
				if s.Correct+s.Outgoing > 0 {
					outFrac = append(outFrac, s.Outgoing/(s.Correct+s.Outgoing))
				}
			}
			logDistribution("fraction of outgoing reads per taxon", outFrac)
			logTopTaxa(ranked, topN, names)
		}
	},
}

func init() {
	RootCmd.AddCommand(summaryCmd)

	addAccountingFlags(summaryCmd)

	summaryCmd.SetUsageTemplate(usageTemplate("{[-I <sam dir>] | <sam/bam files> | -X <file list>} [-o summary.tsv]"))
}
