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
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// BAMReader reads records from a BAM file.
type BAMReader struct {
	file string
	fh   *os.File
	r    *bam.Reader

	rec Record
}

// NewBAMReader opens a BAM file. BGZF blocks are decompressed
// with one goroutine.
func NewBAMReader(file string) (*BAMReader, error) {
	fh, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(ErrInputUnreadable, "%s: %s", file, err)
	}
	r, err := bam.NewReader(fh, 1)
	if err != nil {
		fh.Close()
		return nil, errors.Wrapf(ErrInputUnreadable, "%s: %s", file, err)
	}
	return &BAMReader{file: file, fh: fh, r: r}, nil
}

// Read returns the next record. The returned record is reused by
// the following call.
func (r *BAMReader) Read() (*Record, error) {
	s, err := r.r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(ErrInputUnreadable, "%s: %s", r.file, err)
	}

	r.rec.QName = s.Name
	r.rec.Flag = uint16(s.Flags)
	r.rec.MapQ = s.MapQ
	if s.Ref == nil || s.Flags&sam.Unmapped != 0 {
		r.rec.RName = Unaligned
	} else {
		r.rec.RName = s.Ref.Name()
	}
	return &r.rec, nil
}

// Close closes the BAM reader and the file.
func (r *BAMReader) Close() error {
	err := r.r.Close()
	if err2 := r.fh.Close(); err == nil {
		err = err2
	}
	return err
}
