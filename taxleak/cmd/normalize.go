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
	"github.com/pkg/errors"
	"github.com/shenwei356/taxleak/taxleak/leakage"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize incoming leakage by outgoing totals",
	Long: `Normalize incoming leakage by outgoing totals

For every pair A -> B, the read counts of each gene are divided by the
number of reads of the same gene leaving A to any taxon, and the ratios
are added to B. A taxon receiving leaks from taxa that rarely leak
elsewhere gets a high normalized total.

Input:
  - SAM/BAM files, or
  - pairwise tables from "taxleak pairwise" via -s/--snapshot.
    Repeated pairs in multiple tables are merged.

Undefined ratios (the outgoing total of a gene is zero or absent, only
possible with edited tables) are skipped by default, or counted as 0
with --zero-policy zero.

Output format (tab-delimited, no header):
  1. to, taxid receiving leaks
  2. total, sum of normalized values of all genes
  3+. normalized values of gene 0, 1, ..., "NA" for genes without leaks.

Lines are sorted by total and taxid, in ascending order.

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

		policy, ok := leakage.ParseZeroPolicy(getFlagString(cmd, "zero-policy"))
		if !ok {
			checkError(fmt.Errorf("invalid value of --zero-policy: %s, available: skip, zero",
				getFlagString(cmd, "zero-policy")))
		}

		snapshots := getFlagStringSlice(cmd, "snapshot")
		names := loadTaxonNames(cmd, opt)
		topN := getFlagNonNegativeInt(cmd, "top")
		outFile := getFlagString(cmd, "out-file")

		aopt := getAccountingOptions(cmd, opt)
		aopt.ZeroPolicy = policy

		// ---------------------------------------------------------------

		var table *leakage.PairTable
		var stats *leakage.Stats
		var nFiles int
		var err error
		if len(snapshots) > 0 {
			if len(args) > 0 {
				log.Warningf("  %d positional argument(s) ignored when -s/--snapshot given", len(args))
			}
			nFiles = len(snapshots)
			table = leakage.NewPairTable()
			for _, file := range snapshots {
				if outputLog {
					log.Infof("reading pairwise table: %s", file)
				}
				t, err := readPairTable(expandPath(file))
				checkError(err)
				table.MergeFrom(t)
			}
		} else {
			files := getInputFiles(cmd, args, opt)
			nFiles = len(files)

			if outputLog {
				log.Info("counting mis-assigned reads ...")
			}
			src := newFileSource(files, opt)
			table, stats, err = leakage.BuildPairTable(src, aopt)
			checkError(err)
			src.wait()

			if outputLog {
				logStats(stats, aopt)
			}
		}
		if outputLog {
			log.Infof("  %s pairs of taxa with leaks", humanize.Comma(int64(table.Len())))
			log.Info("normalizing incoming leakage ...")
		}

		var nUndefined int
		profiles, undefined := table.NormalizeIncoming(policy, func(p leakage.Pair, g leakage.GeneID) {
			nUndefined++
			if outputLog && nUndefined <= maxWarnings {
				log.Warningf("no outgoing reads of gene %d of taxon %d, the ratio of %d -> %d is %s",
					g, p.From, p.From, p.To, undefinedAction(policy))
			}
		})
		if stats == nil {
			stats = &leakage.Stats{}
		}
		stats.Undefined += uint64(undefined)

		if outputLog {
			log.Infof("  %s taxa receiving leaks", humanize.Comma(int64(len(profiles))))
			if undefined > 0 {
				log.Warningf("  %s undefined ratios %s", humanize.Comma(int64(undefined)), undefinedAction(policy))
			}
		}

		// ---------------------------------------------------------------

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		checkError(leakage.WriteNormalized(outfh, profiles))
		closeStream(outfh, gw, w)

		if outputLog {
			ranked := leakage.RankNormalized(profiles)
			totals := make([]float64, len(ranked))
			for i, id := range ranked {
				totals[i] = profiles[id].Total()
			}
			logDistribution("normalized incoming leakage per taxon", totals)

			if topN > 0 && len(ranked) > 0 {
				if topN > len(ranked) {
					topN = len(ranked)
				}
				log.Infof("top %d taxa by normalized incoming leakage:", topN)
				for i := 0; i < topN; i++ {
					id := ranked[len(ranked)-1-i]
					log.Infof("  %d. %s: %.4f", i+1, names.label(id), totals[len(ranked)-1-i])
				}
			}
		}

		saveRunInfo(cmd, opt, nFiles, aopt, false, stats)
	},
}

func readPairTable(file string) (*leakage.PairTable, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to read pairwise table: %s", file)
	}
	defer fh.Close()

	t, err := leakage.ReadPairTable(fh)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	return t, nil
}

func init() {
	RootCmd.AddCommand(normalizeCmd)

	addAccountingFlags(normalizeCmd)

	normalizeCmd.Flags().StringSliceP("snapshot", "s", []string{},
		formatFlagUsage(`Pairwise table(s) from "taxleak pairwise", instead of SAM/BAM files.`))

	normalizeCmd.Flags().StringP("zero-policy", "", leakage.SkipUndefined.String(),
		formatFlagUsage(`How to treat ratios with a zero or absent outgoing total. Available: skip, zero.`))

	normalizeCmd.SetUsageTemplate(usageTemplate("{[-I <sam dir>] | <sam/bam files> | -X <file list> | -s <pairwise.tsv.gz>} [-o normalized.tsv.gz]"))
}
