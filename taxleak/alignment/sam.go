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

package alignment

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/taxleak/taxleak/util"
	"github.com/shenwei356/xopen"
)

// BufferSize is the initial size of the line buffer.
var BufferSize = 1 << 16

// MaxLineSize is the maximum length of a SAM line.
var MaxLineSize = 1 << 30

// number of mandatory SAM columns
const samMandatoryFields = 11

// SAMReader parses SAM text. Header lines are skipped.
type SAMReader struct {
	file    string
	fh      io.Closer
	scanner *bufio.Scanner

	line  int
	items []string
	rec   Record
}

// NewSAMFileReader opens a SAM file, compressed or not. "-" is stdin.
func NewSAMFileReader(file string) (*SAMReader, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, errors.Wrapf(ErrInputUnreadable, "%s: %s", file, err)
	}
	r := NewSAMReader(fh)
	r.file = file
	r.fh = fh
	return r, nil
}

// NewSAMReader parses SAM text from r.
func NewSAMReader(r io.Reader) *SAMReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, BufferSize), MaxLineSize)
	return &SAMReader{
		file:    "-",
		scanner: scanner,
		items:   make([]string, samMandatoryFields+1),
	}
}

// Read returns the next record. The returned record is reused by
// the following call.
func (r *SAMReader) Read() (*Record, error) {
	var line string
	for r.scanner.Scan() {
		r.line++
		line = strings.TrimRight(r.scanner.Text(), "\r\n")
		if line == "" || line[0] == '@' {
			continue
		}

		if err := r.parse(line); err != nil {
			return nil, err
		}
		return &r.rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, errors.Wrapf(ErrInputUnreadable, "%s: %s", r.file, err)
	}
	return nil, io.EOF
}

func (r *SAMReader) parse(line string) error {
	util.SplitNByByte(line, '\t', samMandatoryFields+1, &r.items)
	if len(r.items) < samMandatoryFields {
		return errors.Wrapf(ErrMalformedRecord, "%s:%d: %d columns (<%d)",
			r.file, r.line, len(r.items), samMandatoryFields)
	}

	flag, err := strconv.ParseUint(r.items[1], 10, 16)
	if err != nil {
		return errors.Wrapf(ErrMalformedRecord, "%s:%d: invalid flag: %s", r.file, r.line, r.items[1])
	}
	mapq, err := strconv.ParseUint(r.items[4], 10, 8)
	if err != nil {
		return errors.Wrapf(ErrMalformedRecord, "%s:%d: invalid mapping quality: %s", r.file, r.line, r.items[4])
	}

	r.rec.QName = r.items[0]
	r.rec.Flag = uint16(flag)
	r.rec.RName = r.items[2]
	r.rec.MapQ = uint8(mapq)
	return nil
}

// Close closes the underlying file, if any.
func (r *SAMReader) Close() error {
	if r.fh == nil {
		return nil
	}
	return r.fh.Close()
}
