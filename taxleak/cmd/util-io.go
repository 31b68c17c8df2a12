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
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/taxleak/taxleak/leakage"
)

// BufferSize is size of buffer
var BufferSize = 65536 // os.Getpagesize()

func outStream(file string, gzipped bool, level int) (*bufio.Writer, io.WriteCloser, *os.File, error) {
	var w *os.File
	if file == "-" {
		w = os.Stdout
	} else {
		dir := filepath.Dir(file)
		if dir != "." {
			if err := os.MkdirAll(dir, 0777); err != nil {
				return nil, nil, nil, errors.Wrapf(err, "fail to create directory: %s", dir)
			}
		}

		var err error
		w, err = os.Create(file)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "fail to write %s", file)
		}
	}

	if gzipped {
		gw, err := pgzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "fail to write %s", file)
		}
		return bufio.NewWriterSize(gw, BufferSize), gw, w, nil
	}
	return bufio.NewWriterSize(w, BufferSize), nil, w, nil
}

// closeStream flushes and closes everything returned by outStream.
func closeStream(outfh *bufio.Writer, gw io.WriteCloser, w *os.File) {
	checkError(outfh.Flush())
	if gw != nil {
		checkError(gw.Close())
	}
	if w != os.Stdout {
		checkError(w.Close())
	}
}

// RunInfo is saved to the file of --stats-file.
type RunInfo struct {
	MainVersion string `toml:"main-version" comment:"Taxleak version"`
	Command     string `toml:"command"`
	Files       int    `toml:"input-files"`
	MinMapQ     uint8  `toml:"min-mapq"`
	Fractional  bool   `toml:"fractional"`
	ZeroPolicy  string `toml:"zero-policy"`

	Stats leakage.Stats `toml:"stats"`
}

func writeRunInfo(file string, info *RunInfo) error {
	fh, err := os.Create(file)
	if err != nil {
		return errors.Wrapf(err, "fail to write stats file: %s", file)
	}

	enc := toml.NewEncoder(fh)
	enc.SetIndentTables(true)
	if err = enc.Encode(info); err != nil {
		fh.Close()
		return errors.Wrapf(err, "fail to write stats file: %s", file)
	}
	return fh.Close()
}

func readRunInfo(file string) (*RunInfo, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to read stats file: %s", file)
	}
	defer fh.Close()

	info := &RunInfo{}
	if err = toml.NewDecoder(fh).Decode(info); err != nil {
		return nil, errors.Wrapf(err, "fail to read stats file: %s", file)
	}
	return info, nil
}
