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

// Package alignment reads alignment records from SAM and BAM files.
// Only the fields needed for leakage accounting are kept.
package alignment

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ErrInputUnreadable means an input file can not be opened or decoded.
var ErrInputUnreadable = errors.New("alignment: input unreadable")

// ErrMalformedRecord means a record misses mandatory fields
// or has unparsable ones.
var ErrMalformedRecord = errors.New("alignment: malformed record")

// FlagUnmapped is the SAM flag bit of unmapped segments.
const FlagUnmapped uint16 = 0x4

// Unaligned is the reference name of unaligned records.
const Unaligned = "*"

// Record is an alignment record.
type Record struct {
	QName string // read name
	Flag  uint16
	RName string // reference name, "*" for unaligned records
	MapQ  uint8
}

// Aligned tells whether the read is placed on a reference.
func (r *Record) Aligned() bool {
	return r.RName != Unaligned && r.Flag&FlagUnmapped == 0
}

// Reader returns records one by one, and io.EOF after the last one.
// A Reader might return an error wrapping ErrMalformedRecord for one
// record and still continue with the next call.
type Reader interface {
	Read() (*Record, error)
	Close() error
}

// Source opens a fresh Reader for every pass over the same input.
type Source interface {
	Open() (Reader, error)
}

// OpenFile opens a SAM (plain or compressed) or BAM file.
// "-" is stdin.
func OpenFile(file string) (Reader, error) {
	if strings.HasSuffix(strings.ToLower(file), ".bam") {
		r, err := NewBAMReader(file)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	r, err := NewSAMFileReader(file)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// IsStdin tells whether the file is stdin.
func IsStdin(file string) bool {
	return file == "-"
}

// Files reads several files one after another.
// Stdin ("-") can only be read in one pass.
type Files struct {
	Files []string

	// Done, if not nil, is called after a file is exhausted.
	Done func(file string)

	passes int
}

// Open implements Source.
func (fs *Files) Open() (Reader, error) {
	if fs.passes > 0 {
		for _, file := range fs.Files {
			if IsStdin(file) {
				return nil, errors.Wrap(ErrInputUnreadable, "stdin can only be read once")
			}
		}
	}
	fs.passes++
	return &multiReader{files: fs.Files, done: fs.Done}, nil
}

type multiReader struct {
	files []string
	done  func(file string)

	i   int
	cur Reader
}

func (r *multiReader) Read() (*Record, error) {
	for {
		if r.cur == nil {
			if r.i >= len(r.files) {
				return nil, io.EOF
			}
			cur, err := OpenFile(r.files[r.i])
			if err != nil {
				return nil, err
			}
			r.cur = cur
		}

		rec, err := r.cur.Read()
		if err != io.EOF {
			return rec, err
		}

		err = r.cur.Close()
		r.cur = nil
		if err != nil {
			return nil, errors.Wrap(ErrInputUnreadable, err.Error())
		}
		if r.done != nil {
			r.done(r.files[r.i])
		}
		r.i++
	}
}

func (r *multiReader) Close() error {
	if r.cur != nil {
		err := r.cur.Close()
		r.cur = nil
		return err
	}
	return nil
}

// Records serves records from memory.
type Records []Record

// Open implements Source.
func (rs Records) Open() (Reader, error) {
	return &sliceReader{records: rs}, nil
}

type sliceReader struct {
	records Records
	i       int
}

func (r *sliceReader) Read() (*Record, error) {
	if r.i >= len(r.records) {
		return nil, io.EOF
	}
	rec := &r.records[r.i]
	r.i++
	return rec, nil
}

func (r *sliceReader) Close() error { return nil }
