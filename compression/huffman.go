package compression

import (
	"errors"
	"fmt"
)

// alphabetSize is the full byte alphabet. Symbols that never occur simply
// carry a zero frequency.
const alphabetSize = 256

// node is one node of the Huffman prefix tree. A node is a leaf iff both
// children are nil; internal nodes carry only the combined weight of their
// subtrees. Every node has exactly one parent, so plain pointers are enough.
type node struct {
	symbol byte
	weight uint32
	left   *node
	right  *node
}

func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}

// minHeap is an array-backed binary min-heap of tree nodes ordered by
// weight. Capacity is fixed at construction to the distinct-symbol count;
// a correct caller never overflows it. Equal weights keep insertion order
// on the way in (strict < on sift-up), which makes tree construction
// deterministic for a given frequency table.
type minHeap struct {
	nodes []*node
}

func newMinHeap(capacity int) *minHeap {
	return &minHeap{nodes: make([]*node, 0, capacity)}
}

func (h *minHeap) insert(n *node) error {
	if len(h.nodes) == cap(h.nodes) {
		return fmt.Errorf("heap overflow: capacity %d exceeded", cap(h.nodes))
	}
	h.nodes = append(h.nodes, n)

	i := len(h.nodes) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if h.nodes[i].weight >= h.nodes[parent].weight {
			break
		}
		h.nodes[i], h.nodes[parent] = h.nodes[parent], h.nodes[i]
		i = parent
	}
	return nil
}

func (h *minHeap) extractMin() (*node, bool) {
	if h.isEmpty() {
		return nil, false
	}
	min := h.nodes[0]
	last := len(h.nodes) - 1
	h.nodes[0] = h.nodes[last]
	h.nodes[last] = nil
	h.nodes = h.nodes[:last]

	i := 0
	for {
		smallest := i
		if l := 2*i + 1; l < len(h.nodes) && h.nodes[l].weight < h.nodes[smallest].weight {
			smallest = l
		}
		if r := 2*i + 2; r < len(h.nodes) && h.nodes[r].weight < h.nodes[smallest].weight {
			smallest = r
		}
		if smallest == i {
			break
		}
		h.nodes[i], h.nodes[smallest] = h.nodes[smallest], h.nodes[i]
		i = smallest
	}
	return min, true
}

func (h *minHeap) isEmpty() bool {
	return len(h.nodes) == 0
}

// buildTree turns a frequency table into the root of a Huffman prefix tree.
// The decoder rebuilds the tree from the table stored in the container, so
// this must be deterministic: leaves are seeded in ascending symbol order
// and the first of each extracted pair becomes the LEFT child.
func buildTree(freqs *[alphabetSize]uint32) (*node, error) {
	distinct := 0
	for _, f := range freqs {
		if f > 0 {
			distinct++
		}
	}
	if distinct == 0 {
		return nil, errors.New("no symbols with non-zero frequency")
	}

	if distinct == 1 {
		// A single-leaf tree has no depth to encode a bit with, so hang
		// the one leaf off an internal root. The decode walk then reaches
		// it through the generic leaf check, no special case needed.
		for s, f := range freqs {
			if f > 0 {
				leaf := &node{symbol: byte(s), weight: f}
				return &node{weight: f, left: leaf}, nil
			}
		}
	}

	h := newMinHeap(distinct)
	for s := 0; s < alphabetSize; s++ {
		if freqs[s] == 0 {
			continue
		}
		if err := h.insert(&node{symbol: byte(s), weight: freqs[s]}); err != nil {
			return nil, err
		}
	}

	for {
		left, _ := h.extractMin()
		right, ok := h.extractMin()
		if !ok {
			return left, nil
		}
		merged := &node{weight: left.weight + right.weight, left: left, right: right}
		if err := h.insert(merged); err != nil {
			return nil, err
		}
	}
}

// symbolCode is one entry of the code table: the root-to-leaf path as a
// string of '0'/'1' runes. Length 0 means the symbol does not occur.
// Max length is bounded by the distinct-symbol count, 255 for a maximally
// skewed tree.
type symbolCode struct {
	code string
	bits int
}

// buildCodeTable walks the tree and records the path to every leaf,
// '0' descending left and '1' descending right.
func buildCodeTable(root *node) [alphabetSize]symbolCode {
	var table [alphabetSize]symbolCode
	if root.left != nil && root.right == nil && root.left.isLeaf() {
		// single-symbol tree
		table[root.left.symbol] = symbolCode{code: "0", bits: 1}
		return table
	}
	assignCodes(root, "", &table)
	return table
}

func assignCodes(n *node, code string, table *[alphabetSize]symbolCode) {
	if n == nil {
		return
	}
	if n.isLeaf() {
		table[n.symbol] = symbolCode{code: code, bits: len(code)}
		return
	}
	assignCodes(n.left, code+"0", table)
	assignCodes(n.right, code+"1", table)
}
