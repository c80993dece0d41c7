package analysis

import (
	"math"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// HalsteadStats holds Maurice Halstead's software science measures,
// derived from operator and operand frequency counts.
type HalsteadStats struct {
	UniqueOperators uint64
	Operators       uint64
	UniqueOperands  uint64
	Operands        uint64
}

// Length returns the program length N = N1 + N2.
func (s HalsteadStats) Length() float64 { return float64(s.Operators + s.Operands) }

// Vocabulary returns the program vocabulary eta = eta1 + eta2.
func (s HalsteadStats) Vocabulary() float64 {
	return float64(s.UniqueOperators + s.UniqueOperands)
}

// Volume returns V = N * log2(eta), in bits.
func (s HalsteadStats) Volume() float64 {
	vocab := s.Vocabulary()
	if vocab == 0 {
		return 0
	}
	return s.Length() * math.Log2(vocab)
}

// Difficulty returns D = (eta1/2) * (N2/eta2).
func (s HalsteadStats) Difficulty() float64 {
	if s.UniqueOperands == 0 {
		return 0
	}
	return float64(s.UniqueOperators) / 2.0 * float64(s.Operands) / float64(s.UniqueOperands)
}

// Effort returns E = D * V.
func (s HalsteadStats) Effort() float64 { return s.Difficulty() * s.Volume() }

// Time returns T = E/18 seconds (the Stroud number).
func (s HalsteadStats) Time() float64 { return s.Effort() / 18.0 }

// Bugs returns the estimated delivered-bug count B = E^(2/3) / 3000.
func (s HalsteadStats) Bugs() float64 { return math.Pow(s.Effort(), 2.0/3.0) / 3000.0 }

// halsteadOperandKinds are the leaf tree-sitter node kinds counted as
// operands (identifiers and literals). Every other leaf token (keywords
// and punctuation) is counted as an operator.
var halsteadOperandKinds = map[string]bool{
	"identifier": true, "field_identifier": true, "type_identifier": true,
	"property_identifier": true, "shorthand_property_identifier": true,
	"int_literal": true, "interpreted_string_literal": true, "string": true,
	"number": true, "integer": true, "float": true, "true": true, "false": true,
	"none": true, "nil": true, "raw_string_literal": true,
}

// HalsteadCollector accumulates operator/operand frequencies over one or
// more subtrees.
type HalsteadCollector struct {
	operators map[string]uint64
	operands  map[string]uint64
}

// NewHalsteadCollector constructs an empty collector.
func NewHalsteadCollector() *HalsteadCollector {
	return &HalsteadCollector{operators: map[string]uint64{}, operands: map[string]uint64{}}
}

// Collect walks node's subtree, classifying every leaf token as an
// operator or an operand by tree-sitter node kind.
func (c *HalsteadCollector) Collect(node *sitter.Node, source []byte) {
	if node == nil {
		return
	}
	if node.ChildCount() == 0 {
		kind := node.Type()
		if kind == "" || kind == "\n" {
			return
		}
		if halsteadOperandKinds[kind] {
			c.operands[node.Content(source)]++
		} else if node.IsNamed() || len(kind) > 0 {
			c.operators[kind]++
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		c.Collect(node.Child(i), source)
	}
}

// Finalize computes the HalsteadStats from accumulated frequencies.
func (c *HalsteadCollector) Finalize() HalsteadStats {
	var opTotal, operandTotal uint64
	for _, n := range c.operators {
		opTotal += n
	}
	for _, n := range c.operands {
		operandTotal += n
	}
	return HalsteadStats{
		UniqueOperators: uint64(len(c.operators)),
		Operators:       opTotal,
		UniqueOperands:  uint64(len(c.operands)),
		Operands:        operandTotal,
	}
}

// MostFrequentOperators returns up to limit (kind, count) pairs sorted by
// descending frequency.
func (c *HalsteadCollector) MostFrequentOperators(limit int) []KindCount {
	return topN(c.operators, limit)
}

// MostFrequentOperands returns up to limit (text, count) pairs sorted by
// descending frequency.
func (c *HalsteadCollector) MostFrequentOperands(limit int) []KindCount {
	return topN(c.operands, limit)
}

// KindCount pairs a token kind or text with its occurrence count.
type KindCount struct {
	Key   string
	Count uint64
}

func topN(m map[string]uint64, limit int) []KindCount {
	items := make([]KindCount, 0, len(m))
	for k, v := range m {
		items = append(items, KindCount{Key: k, Count: v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Key < items[j].Key
	})
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
