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

import "math"

// count is a slot of Genes. A zero value is an untouched gene.
type count struct {
	n   uint64
	set bool
}

// Genes is a sparse per-gene event counter indexed by gene id.
// It tells a gene never observed apart from one observed zero times.
// Genes only grows.
type Genes struct {
	slots []count
}

// NewGenes returns an empty counter.
func NewGenes() *Genes {
	return &Genes{}
}

// grow makes sure slot g exists. New slots are unset.
func (c *Genes) grow(g GeneID) {
	if int(g) < len(c.slots) {
		return
	}
	if int(g) < cap(c.slots) {
		c.slots = c.slots[:int(g)+1]
		return
	}
	slots := make([]count, int(g)+1, 2*int(g)+2)
	copy(slots, c.slots)
	c.slots = slots
}

// Increment adds one event to gene g.
func (c *Genes) Increment(g GeneID) {
	c.Add(g, 1)
}

// Add adds n events to gene g. Adding zero touches the gene.
func (c *Genes) Add(g GeneID, n uint64) {
	c.grow(g)
	s := &c.slots[g]
	s.set = true
	s.n += n
}

// Get returns the count of gene g, and false if the gene was never touched.
func (c *Genes) Get(g GeneID) (uint64, bool) {
	if int(g) >= len(c.slots) {
		return 0, false
	}
	s := c.slots[g]
	return s.n, s.set
}

// Len returns the number of slots, i.e., the highest touched gene + 1.
func (c *Genes) Len() int {
	return len(c.slots)
}

// Touched returns the number of genes ever touched.
func (c *Genes) Touched() int {
	var n int
	for _, s := range c.slots {
		if s.set {
			n++
		}
	}
	return n
}

// Total sums the counts of all touched genes.
func (c *Genes) Total() uint64 {
	var t uint64
	for _, s := range c.slots {
		if s.set {
			t += s.n
		}
	}
	return t
}

// MergeFrom adds all touched genes of other into c.
// Genes untouched in other are left as they are in c.
func (c *Genes) MergeFrom(other *Genes) {
	for g, s := range other.slots {
		if !s.set {
			continue
		}
		c.Add(GeneID(g), s.n)
	}
}

// Each calls fn for every touched gene in ascending order.
func (c *Genes) Each(fn func(g GeneID, n uint64)) {
	for g, s := range c.slots {
		if s.set {
			fn(GeneID(g), s.n)
		}
	}
}

// Equal tells whether two counters have the same touched genes and counts.
// Trailing capacity does not matter.
func (c *Genes) Equal(other *Genes) bool {
	if len(c.slots) != len(other.slots) {
		return false
	}
	for g, s := range c.slots {
		if s != other.slots[g] {
			return false
		}
	}
	return true
}

// ------------------------------------------------------------------

// ZeroPolicy decides what happens when a normalizer is zero or missing.
type ZeroPolicy uint8

const (
	// SkipUndefined drops the contribution and leaves the slot untouched.
	SkipUndefined ZeroPolicy = iota
	// ZeroUndefined touches the slot and adds zero.
	ZeroUndefined
)

func (p ZeroPolicy) String() string {
	switch p {
	case SkipUndefined:
		return "skip"
	case ZeroUndefined:
		return "zero"
	}
	return "unknown"
}

// ParseZeroPolicy parses "skip" or "zero".
func ParseZeroPolicy(s string) (ZeroPolicy, bool) {
	switch s {
	case "skip":
		return SkipUndefined, true
	case "zero":
		return ZeroUndefined, true
	}
	return SkipUndefined, false
}

type ratio struct {
	v   float64
	set bool
}

// NormGenes is the floating-point version of Genes.
type NormGenes struct {
	slots []ratio
}

// NewNormGenes returns an empty counter.
func NewNormGenes() *NormGenes {
	return &NormGenes{}
}

func (c *NormGenes) grow(g GeneID) {
	if int(g) < len(c.slots) {
		return
	}
	if int(g) < cap(c.slots) {
		c.slots = c.slots[:int(g)+1]
		return
	}
	slots := make([]ratio, int(g)+1, 2*int(g)+2)
	copy(slots, c.slots)
	c.slots = slots
}

// Add adds v to gene g.
func (c *NormGenes) Add(g GeneID, v float64) {
	c.grow(g)
	s := &c.slots[g]
	s.set = true
	s.v += v
}

// Get returns the value of gene g, and false if the gene was never touched.
func (c *NormGenes) Get(g GeneID) (float64, bool) {
	if int(g) >= len(c.slots) {
		return 0, false
	}
	s := c.slots[g]
	return s.v, s.set
}

// Len returns the number of slots.
func (c *NormGenes) Len() int {
	return len(c.slots)
}

// MergeNormalizedFromCounts adds counts[g]/normalizer[g] for every gene
// touched in counts. A missing or zero normalizer is handled by policy,
// and fn, if not nil, is called for each such gene.
// It returns the number of undefined ratios.
func (c *NormGenes) MergeNormalizedFromCounts(counts, normalizer *Genes,
	policy ZeroPolicy, fn func(g GeneID)) int {
	var undefined int
	for g, s := range counts.slots {
		if !s.set {
			continue
		}
		gene := GeneID(g)

		d, ok := normalizer.Get(gene)
		if !ok || d == 0 {
			undefined++
			if fn != nil {
				fn(gene)
			}
			if policy == ZeroUndefined {
				c.Add(gene, 0)
			}
			continue
		}

		c.Add(gene, float64(s.n)/float64(d))
	}
	return undefined
}

// Total sums all touched genes. Non-finite and negative values count as zero.
func (c *NormGenes) Total() float64 {
	var t float64
	for _, s := range c.slots {
		if !s.set || s.v <= 0 || math.IsInf(s.v, 0) || math.IsNaN(s.v) {
			continue
		}
		t += s.v
	}
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	return t
}

// Each calls fn for every touched gene in ascending order.
func (c *NormGenes) Each(fn func(g GeneID, v float64)) {
	for g, s := range c.slots {
		if s.set {
			fn(GeneID(g), s.v)
		}
	}
}
