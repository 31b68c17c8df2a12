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

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "List genes or taxa to mask",
	Long: `List genes or taxa to mask

A gene receiving more than -t/--max-leaked-reads reads from other genes or
taxa is leaked on. Such genes are listed for masking, unless the taxon has
fewer than -g/--min-genes good genes left, then the whole taxon is masked.

Output format (tab-delimited, no header):
  - taxid, gene, incoming reads; for a leaked gene
  - taxid, "*";                  for a whole taxon

Taxa are in the order of "taxleak taxa", genes in ascending order.

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
		maxLeaked := getFlagNonNegativeFloat64(cmd, "max-leaked-reads")
		minGenes := getFlagNonNegativeInt(cmd, "min-genes")
		names := loadTaxonNames(cmd, opt)
		topN := getFlagNonNegativeInt(cmd, "top")
		outFile := getFlagString(cmd, "out-file")

		_, taxa := countTaxa(cmd, args, opt, fractional)

		// ---------------------------------------------------------------

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		nTaxa, nGenes, err := leakage.WriteMask(outfh, taxa, maxLeaked, minGenes)
		checkError(err)
		closeStream(outfh, gw, w)

		if outputLog {
			log.Infof("%s taxa masked as a whole (< %d good genes), %s genes masked (> %s leaked reads)",
				humanize.Comma(int64(nTaxa)), minGenes,
				humanize.Comma(int64(nGenes)), humanize.Ftoa(maxLeaked))
			logTopTaxa(taxa, topN, names)
		}
	},
}

func init() {
	RootCmd.AddCommand(maskCmd)

	addAccountingFlags(maskCmd)
	addLedgerFlags(maskCmd)

	maskCmd.Flags().Float64P("max-leaked-reads", "t", 10,
		formatFlagUsage(`A gene is leaked on if it receives more reads than this from elsewhere.`))

	maskCmd.Flags().IntP("min-genes", "g", 60,
		formatFlagUsage(`Minimum number of good genes of a taxon, or the whole taxon is masked.`))

	maskCmd.SetUsageTemplate(usageTemplate("[-t <reads>] [-g <genes>] {[-I <sam dir>] | <sam/bam files> | -X <file list>} [-o mask.tsv]"))
}
