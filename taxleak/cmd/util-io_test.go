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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/shenwei356/taxleak/taxleak/leakage"
	"github.com/shenwei356/xopen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutStreamGzipped(t *testing.T) {
	// missing directories are created
	file := filepath.Join(t.TempDir(), "out", "taxa.tsv.gz")

	outfh, gw, w, err := outStream(file, true, -1)
	require.NoError(t, err)
	require.NotNil(t, gw)
	_, err = outfh.WriteString("1\t2\t0\tcorrect\t3\n")
	require.NoError(t, err)
	closeStream(outfh, gw, w)

	fh, err := xopen.Ropen(file)
	require.NoError(t, err)
	defer fh.Close()
	data, err := io.ReadAll(fh)
	require.NoError(t, err)
	assert.Equal(t, "1\t2\t0\tcorrect\t3\n", string(data))
}

func TestOutStreamPlain(t *testing.T) {
	file := filepath.Join(t.TempDir(), "pairs.tsv")

	outfh, gw, w, err := outStream(file, false, -1)
	require.NoError(t, err)
	assert.Nil(t, gw)
	_, err = outfh.WriteString("5\t7\t1\t1\n")
	require.NoError(t, err)
	closeStream(outfh, gw, w)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "5\t7\t1\t1\n", string(data))
}

func TestRunInfo(t *testing.T) {
	file := filepath.Join(t.TempDir(), "stats.toml")
	info := &RunInfo{
		MainVersion: VERSION,
		Command:     "taxa",
		Files:       3,
		MinMapQ:     4,
		Fractional:  true,
		ZeroPolicy:  leakage.SkipUndefined.String(),
		Stats: leakage.Stats{
			Passes:    2,
			Records:   100,
			Unaligned: 10,
			LowMapQ:   5,
			Accepted:  85,
			Correct:   80,
			Incorrect: 5,
		},
	}
	require.NoError(t, writeRunInfo(file, info))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[stats]")
	assert.Contains(t, string(data), "low-mapq = 5")

	info2, err := readRunInfo(file)
	require.NoError(t, err)
	assert.Equal(t, info, info2)

	_, err = readRunInfo(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
