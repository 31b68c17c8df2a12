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

package leakage

import (
	"errors"
	"io"

	"github.com/shenwei356/taxleak/taxleak/alignment"
	"github.com/zeebo/wyhash"
)

// DefaultMinMapQ is the default mapping quality threshold.
const DefaultMinMapQ = 4

// Options controls which records are counted and how
// undefined ratios are treated.
type Options struct {
	// Records with mapping quality strictly below it are skipped.
	MinMapQ uint8

	// Stop at the first malformed record or identifier,
	// instead of skipping and counting it.
	Strict bool

	ZeroPolicy ZeroPolicy

	// Count distinct read names, it costs memory proportional to the reads.
	CountReads bool

	// Optional diagnostics.
	OnMalformed    func(err error)
	OnGeneMismatch func(h Hit)
	OnUndefined    func(id Identity)
}

// DefaultOptions returns the options used by the command line tool.
func DefaultOptions() *Options {
	return &Options{MinMapQ: DefaultMinMapQ}
}

// Stats counts records of accounting passes.
type Stats struct {
	Passes       int    `toml:"passes"`
	Records      uint64 `toml:"records"`
	Unaligned    uint64 `toml:"unaligned"`
	LowMapQ      uint64 `toml:"low-mapq"`
	Malformed    uint64 `toml:"malformed"`
	Accepted     uint64 `toml:"accepted"`
	Correct      uint64 `toml:"correct"`
	Incorrect    uint64 `toml:"incorrect"`
	GeneMismatch uint64 `toml:"gene-mismatch"`
	Undefined    uint64 `toml:"undefined-ratios"`
	Reads        uint64 `toml:"distinct-reads"`
}

// Walk reads all records of one pass, skips unaligned, low-quality and
// malformed ones, and calls fn with every resolved record.
func Walk(src alignment.Source, opt *Options, stats *Stats, fn func(h Hit)) error {
	if opt == nil {
		opt = DefaultOptions()
	}
	if stats == nil {
		stats = &Stats{}
	}

	rdr, err := src.Open()
	if err != nil {
		return err
	}
	defer rdr.Close()

	var reads map[uint64]struct{}
	if opt.CountReads {
		reads = make(map[uint64]struct{}, 1<<16)
	}

	malformed := func(err error) error {
		stats.Malformed++
		if opt.Strict {
			return err
		}
		if opt.OnMalformed != nil {
			opt.OnMalformed(err)
		}
		return nil
	}

	stats.Passes++
	var rec *alignment.Record
	var hit Hit
	for {
		rec, err = rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !errors.Is(err, alignment.ErrMalformedRecord) {
				return err
			}
			stats.Records++
			if err = malformed(err); err != nil {
				return err
			}
			continue
		}
		stats.Records++

		if !rec.Aligned() {
			stats.Unaligned++
			continue
		}
		if rec.MapQ < opt.MinMapQ {
			stats.LowMapQ++
			continue
		}

		hit, err = Resolve(rec)
		if err != nil {
			if err = malformed(err); err != nil {
				return err
			}
			continue
		}

		stats.Accepted++
		if reads != nil {
			reads[wyhash.HashString(rec.QName, 1)] = struct{}{}
		}

		if hit.Correct() {
			stats.Correct++
		} else {
			stats.Incorrect++
			if hit.Query.Gene != hit.Reference.Gene {
				stats.GeneMismatch++
				if opt.OnGeneMismatch != nil {
					opt.OnGeneMismatch(hit)
				}
			}
		}

		fn(hit)
	}

	if reads != nil {
		stats.Reads = uint64(len(reads))
	}
	return nil
}
