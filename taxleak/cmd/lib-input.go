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
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/taxleak/taxleak/alignment"
	"github.com/shenwei356/taxleak/taxleak/leakage"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// maxWarnings is the number of diagnostics of each kind written to the log.
var maxWarnings = 10

// addAccountingFlags adds flags shared by commands reading alignments.
func addAccountingFlags(cmd *cobra.Command) {
	// -----------------------------  input  -----------------------------

	cmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing SAM/BAM files. Directory symlinks are followed.`))

	cmd.Flags().StringP("file-regexp", "r", `\.(sam|bam)(\.gz|\.xz|\.zst|\.bz2)?$`,
		formatFlagUsage(`Regular expression for matching alignment files in -I/--in-dir, case ignored.`))

	cmd.Flags().IntP("min-mapq", "q", leakage.DefaultMinMapQ,
		formatFlagUsage(`Minimum mapping quality. Records with a lower one are skipped.`))

	cmd.Flags().BoolP("strict", "", false,
		formatFlagUsage(`Stop at the first malformed record or read/reference name, instead of skipping it.`))

	cmd.Flags().BoolP("count-reads", "", false,
		formatFlagUsage(`Count distinct read names. It costs memory proportional to the number of reads.`))

	cmd.Flags().BoolP("show-gene-mismatch", "", false,
		formatFlagUsage(`Log every read assigned to a gene different from its own.`))

	// -----------------------------  output  -----------------------------

	addOutputFlags(cmd)
}

// addOutputFlags adds flags shared by all commands writing reports.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))

	cmd.Flags().StringP("stats-file", "", "",
		formatFlagUsage(`Save the numbers of records and the parameters to a TOML file.`))

	cmd.Flags().StringSliceP("name-map", "M", []string{},
		formatFlagUsage(`Tabular two-column file(s) mapping taxids to names, for labeling taxa in the log.`))

	cmd.Flags().IntP("top", "", 10,
		formatFlagUsage(`Number of the leakiest pairs or taxa to show in the log (0 for none).`))
}

// getInputFiles collects input files from -I/--in-dir, or from
// positional arguments and -X/--infile-list.
func getInputFiles(cmd *cobra.Command, args []string, opt *Options) []string {
	var err error
	outputLog := opt.Verbose || opt.Log2File

	inDir := getFlagString(cmd, "in-dir")
	readFromDir := inDir != ""

	var files []string
	if readFromDir {
		inDir = expandPath(inDir)
		var isDir bool
		isDir, err = pathutil.IsDir(inDir)
		if err != nil {
			checkError(errors.Wrapf(err, "checking -I/--in-dir"))
		}
		if !isDir {
			checkError(fmt.Errorf("value of -I/--in-dir should be a directory: %s", inDir))
		}

		reFileStr := getFlagString(cmd, "file-regexp")
		if !reIgnoreCase.MatchString(reFileStr) {
			reFileStr = reIgnoreCaseStr + reFileStr
		}
		reFile, err := regexp.Compile(reFileStr)
		checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFileStr))

		files, err = getFileListFromDir(inDir, reFile, opt.NumCPUs)
		if err != nil {
			checkError(errors.Wrapf(err, "walking dir: %s", inDir))
		}
		if len(files) == 0 {
			log.Warningf("  no files matching regular expression: %s", reFileStr)
		}
	} else {
		files = getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		if outputLog && len(files) == 1 && isStdin(files[0]) {
			log.Info("  no files given, reading from stdin")
		}
	}

	if len(files) < 1 {
		checkError(fmt.Errorf("SAM/BAM files needed"))
	} else if outputLog {
		log.Infof("  %d input file(s) given", len(files))
	}
	return files
}

// checkTwoPassInput rejects stdin for the schemes reading the input twice.
func checkTwoPassInput(files []string) error {
	for _, file := range files {
		if alignment.IsStdin(file) {
			return fmt.Errorf("stdin is not supported with --fractional, which reads the input twice. Please save the alignments to a file")
		}
	}
	return nil
}

// getAccountingOptions builds the options of accounting passes,
// with diagnostics going to the log.
func getAccountingOptions(cmd *cobra.Command, opt *Options) *leakage.Options {
	minMapQ := getFlagNonNegativeInt(cmd, "min-mapq")
	if minMapQ > 255 {
		checkError(fmt.Errorf("the value of flag -q/--min-mapq should be in range of [0, 255]"))
	}

	aopt := &leakage.Options{
		MinMapQ:    uint8(minMapQ),
		Strict:     getFlagBool(cmd, "strict"),
		CountReads: getFlagBool(cmd, "count-reads"),
	}

	if !(opt.Verbose || opt.Log2File) {
		return aopt
	}

	var nMalformed, nUndefined int
	aopt.OnMalformed = func(err error) {
		nMalformed++
		if nMalformed <= maxWarnings {
			log.Warningf("skipping malformed record: %s", err)
		}
		if nMalformed == maxWarnings {
			log.Warningf("  further malformed records are not shown")
		}
	}
	aopt.OnUndefined = func(id leakage.Identity) {
		nUndefined++
		if nUndefined <= maxWarnings {
			log.Warningf("no total for %s, its contribution is %s", id, undefinedAction(aopt.ZeroPolicy))
		}
		if nUndefined == maxWarnings {
			log.Warningf("  further undefined ratios are not shown")
		}
	}
	if getFlagBool(cmd, "show-gene-mismatch") {
		aopt.OnGeneMismatch = func(h leakage.Hit) {
			log.Infof("gene mismatch: %s -> %s", h.Query, h.Reference)
		}
	}
	return aopt
}

func undefinedAction(p leakage.ZeroPolicy) string {
	if p == leakage.ZeroUndefined {
		return "set to 0"
	}
	return "skipped"
}

// fileSource reads the input files and shows a progress bar
// in every pass.
type fileSource struct {
	files     *alignment.Files
	verbose   bool
	outputLog bool

	// messages logged at the start of every pass
	rounds []string
	round  int

	pbs *mpb.Progress
	bar *mpb.Bar
	t   time.Time
}

func newFileSource(files []string, opt *Options) *fileSource {
	s := &fileSource{
		verbose:   opt.Verbose && len(files) > 1,
		outputLog: opt.Verbose || opt.Log2File,
	}
	s.files = &alignment.Files{Files: files, Done: s.done}
	return s
}

// Open implements alignment.Source.
func (s *fileSource) Open() (alignment.Reader, error) {
	s.wait()
	if s.outputLog && s.round < len(s.rounds) {
		log.Info(s.rounds[s.round])
	}
	s.round++

	if s.verbose {
		s.pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
		s.bar = s.pbs.AddBar(int64(len(s.files.Files)),
			mpb.PrependDecorators(
				decor.Name("processed files: ", decor.WC{W: len("processed files: "), C: decor.DindentRight}),
				decor.Name("", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
				decor.EwmaETA(decor.ET_STYLE_GO, 3),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)
		s.t = time.Now()
	}
	return s.files.Open()
}

func (s *fileSource) done(file string) {
	if s.bar == nil {
		return
	}
	s.bar.EwmaIncrBy(1, time.Since(s.t))
	s.t = time.Now()
}

// wait waits for the progress bar of the last pass.
func (s *fileSource) wait() {
	if s.pbs == nil {
		return
	}
	if !s.bar.Completed() {
		s.bar.Abort(false)
	}
	s.pbs.Wait()
	s.pbs, s.bar = nil, nil
}
