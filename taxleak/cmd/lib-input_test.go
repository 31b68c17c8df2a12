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
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/shenwei356/taxleak/taxleak/leakage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samLine(qname, rname string, mapq int) string {
	return strings.Join([]string{qname, "0", rname, "1", strconv.Itoa(mapq),
		"4M", "*", "0", "0", "ACGT", "IIII"}, "\t") + "\n"
}

func writeSAMFiles(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.sam")
	b := filepath.Join(dir, "b.sam")
	require.NoError(t, os.WriteFile(a, []byte("@HD\tVN:1.6\n"+
		samLine("1_0_r1", "1_0", 60)+
		samLine("1_0_r2", "2_0", 60)), 0644))
	require.NoError(t, os.WriteFile(b, []byte(
		samLine("2_0_r3", "2_0", 60)+
			samLine("2_0_r4", "1_0", 2)), 0644))
	return []string{a, b}
}

func TestFileSourcePasses(t *testing.T) {
	files := writeSAMFiles(t)

	var done []string
	src := newFileSource(files, &Options{})
	src.files.Done = func(file string) { done = append(done, file) }
	src.rounds = []string{"round 1/2", "round 2/2"}

	ledger, stats, err := leakage.CountFractionalLedger(src, leakage.DefaultOptions())
	require.NoError(t, err)
	src.wait()

	assert.Equal(t, 2, src.round)
	assert.Equal(t, 2, stats.Passes)
	assert.Equal(t, []string{files[0], files[1], files[0], files[1]}, done)

	// the record with a low mapping quality is skipped
	assert.Equal(t, uint64(1), stats.LowMapQ)
	assert.Equal(t, 2, ledger.Len())

	leaks, ok := ledger.Taxon(1).Gene(0)
	require.True(t, ok)
	assert.InDelta(t, 0.5, leaks.Correct, 1e-12)
	assert.InDelta(t, 1.0, leaks.Outgoing, 1e-12)
}

func TestUndefinedAction(t *testing.T) {
	assert.Equal(t, "skipped", undefinedAction(leakage.SkipUndefined))
	assert.Equal(t, "set to 0", undefinedAction(leakage.ZeroUndefined))
}

func TestCheckTwoPassInput(t *testing.T) {
	files := writeSAMFiles(t)
	assert.NoError(t, checkTwoPassInput(files))
	assert.Error(t, checkTwoPassInput([]string{"-"}))
	assert.Error(t, checkTwoPassInput(append(files, "-")))
}
