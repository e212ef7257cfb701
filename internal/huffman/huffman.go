// Package huffman builds canonical prefix-code decoders from a vector of
// per-symbol code lengths and decodes one symbol at a time from a bit
// source, per RFC 1951 §3.2.2.
//
// The decoder is represented as an arena of node records addressed by
// integer index rather than heap-allocated nodes linked by pointer: this is
// the same tree the reference gunzip implementation builds with malloc'd
// nodes and raw zero/one pointers, reshaped into a flat slice so that
// teardown is freeing one slice instead of walking a graph.
package huffman

import "errors"

// ErrInvalidPrefix is returned when decoding walks off the tree: the next
// bit leads to a child that was never assigned, which only happens with a
// corrupt stream or a malformed code-length vector.
var ErrInvalidPrefix = errors.New("huffman: invalid prefix code")

// ErrMalformedTree is returned when a code-length vector does not describe
// a valid canonical Huffman code: the lengths over- or under-subscribe the
// available code space (the Kraft inequality is violated).
var ErrMalformedTree = errors.New("huffman: code lengths do not form a valid tree")

const noSymbol = -1

type node struct {
	symbol   int32 // noSymbol for internal nodes
	zero, one int32 // index into Tree.nodes, or -1 if unset
}

// Tree is a canonical Huffman decoder built from a code-length vector.
type Tree struct {
	nodes []node
}

// BitSource is the minimal interface Decode needs: one bit at a time, MSB
// of the code first, matching how a Huffman code is transmitted on the
// wire.
type BitSource interface {
	NextBit() (uint32, error)
}

// Build constructs a canonical Huffman decoder from lengths, where
// lengths[s] is the code length in bits for symbol s, or 0 if s does not
// appear in the alphabet. An all-zero lengths vector yields an empty tree
// (valid to construct, but any Decode on it fails with ErrInvalidPrefix).
func Build(lengths []int) (*Tree, error) {
	maxLen := 0
	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
	}

	t := &Tree{nodes: make([]node, 1, len(lengths)+1)}
	t.nodes[0] = node{symbol: noSymbol, zero: -1, one: -1}
	if maxLen == 0 {
		return t, nil
	}

	// bl_count[L] = number of symbols with code length L.
	blCount := make([]int, maxLen+1)
	for _, l := range lengths {
		if l > 0 {
			blCount[l]++
		}
	}

	// next_code[L] = first canonical code of length L, RFC 1951 §3.2.2 step 2.
	nextCode := make([]int, maxLen+1)
	code := 0
	for l := 1; l <= maxLen; l++ {
		code = (code + blCount[l-1]) << 1
		nextCode[l] = code
	}

	singleSymbol := maxLen == 1 && blCount[1] == 1
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		c := nextCode[l]
		nextCode[l]++
		if err := t.insert(sym, c, l); err != nil {
			return nil, err
		}
	}

	// A complete prefix code is a full binary tree: every node is either a
	// leaf or has both children assigned. A node with exactly one child
	// means some code space was never given to any symbol (an
	// under-subscribed length vector) — except the degenerate single-symbol
	// code RFC 1951 §3.2.2 calls out explicitly: one code of length 1 with
	// its other bit value unused, decodable after one bit regardless.
	if !singleSymbol && !t.complete(0) {
		return nil, ErrMalformedTree
	}
	if singleSymbol {
		// The lone symbol holds code 0; route bit 1 to the same leaf.
		t.nodes[0].one = t.nodes[0].zero
	}
	return t, nil
}

// complete reports whether every node of the subtree rooted at idx is
// either a leaf or has both children present, recursively.
func (t *Tree) complete(idx int32) bool {
	n := t.nodes[idx]
	if n.symbol != noSymbol {
		return true
	}
	if n.zero == -1 || n.one == -1 {
		return false
	}
	return t.complete(n.zero) && t.complete(n.one)
}

// insert walks (or extends) the tree from the root, placing symbol at the
// path spelled by code taken as a `length`-bit value, MSB first.
func (t *Tree) insert(symbol int, code int, length int) error {
	cur := int32(0)
	for bit := length - 1; bit >= 0; bit-- {
		if t.nodes[cur].symbol != noSymbol {
			// A shorter code already claimed this node as a leaf; no code
			// may be a prefix of another in a valid prefix-free tree.
			return ErrMalformedTree
		}
		b := (code >> uint(bit)) & 1
		var next int32
		if b == 1 {
			next = t.nodes[cur].one
		} else {
			next = t.nodes[cur].zero
		}
		if next == -1 {
			// append may reallocate t.nodes, so the new index is computed
			// and written back into t.nodes[cur] after it, never held
			// across the call as a pointer into the old backing array.
			next = int32(len(t.nodes))
			t.nodes = append(t.nodes, node{symbol: noSymbol, zero: -1, one: -1})
			if b == 1 {
				t.nodes[cur].one = next
			} else {
				t.nodes[cur].zero = next
			}
		}
		cur = next
	}
	if t.nodes[cur].symbol != noSymbol {
		return ErrMalformedTree
	}
	t.nodes[cur].symbol = int32(symbol)
	return nil
}

// Decode reads bits from src, walking from the root until a leaf is
// reached, and returns its symbol.
func (t *Tree) Decode(src BitSource) (int, error) {
	cur := int32(0)
	for {
		n := &t.nodes[cur]
		if n.symbol != noSymbol {
			return int(n.symbol), nil
		}
		bit, err := src.NextBit()
		if err != nil {
			return 0, err
		}
		if bit == 1 {
			cur = n.one
		} else {
			cur = n.zero
		}
		if cur == -1 {
			return 0, ErrInvalidPrefix
		}
	}
}
