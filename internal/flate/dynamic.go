package flate

import (
	"github.com/jonjohnsonjr/inflate/internal/bitio"
	"github.com/jonjohnsonjr/inflate/internal/huffman"
)

// maxNumLit is the largest HLIT+257 this package accepts: RFC 1951 §3.2.7
// reserves literal/length symbols 286 and 287, so a stream declaring more
// than 286 codes is corrupt rather than merely unusual.
const maxNumLit = 286

// maxNumDist is the largest HDIST+1 this package accepts (RFC 1951 §3.2.7).
const maxNumDist = 30

// codegenCodeCount is the size of the code-length alphabet (RFC 1951
// §3.2.7): 19 symbols describing the code lengths of the two real trees.
const codegenCodeCount = 19

// codeOrder is the fixed, seemingly-arbitrary permutation RFC 1951 §3.2.7
// packs the HCLEN code-length entries in, chosen by the format's authors so
// that the common case (only low-index code-length symbols used) needs
// fewer of the HCLEN entries to be transmitted.
var codeOrder = [codegenCodeCount]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// readDynamicTrees parses the nested encoding at the start of a BTYPE=10
// block: HLIT/HDIST/HCLEN, the code-length alphabet, and the combined
// literal/length + distance code-length vector that alphabet describes, and
// builds both of the block's real Huffman trees from it.
func readDynamicTrees(br *bitio.Reader) (lit, dist *huffman.Tree, err error) {
	hlitBits, err := br.ReadBitsLSB(5)
	if err != nil {
		return nil, nil, err
	}
	hdistBits, err := br.ReadBitsLSB(5)
	if err != nil {
		return nil, nil, err
	}
	hclenBits, err := br.ReadBitsLSB(4)
	if err != nil {
		return nil, nil, err
	}

	nlit := int(hlitBits) + 257
	ndist := int(hdistBits) + 1
	nclen := int(hclenBits) + 4

	if nlit > maxNumLit {
		return nil, nil, ErrLengthsOverflow
	}
	if ndist > maxNumDist {
		return nil, nil, ErrLengthsOverflow
	}

	var codeLenLengths [codegenCodeCount]int
	for i := 0; i < nclen; i++ {
		v, err := br.ReadBitsLSB(3)
		if err != nil {
			return nil, nil, err
		}
		codeLenLengths[codeOrder[i]] = int(v)
	}
	// Positions beyond the transmitted HCLEN entries are implicitly absent
	// (length 0); codeLenLengths is already zero-valued there.

	codeLenTree, err := huffman.Build(codeLenLengths[:])
	if err != nil {
		return nil, nil, err
	}

	total := nlit + ndist
	lengths := make([]int, total)
	for i := 0; i < total; {
		sym, err := codeLenTree.Decode(br)
		if err != nil {
			return nil, nil, err
		}

		switch {
		case sym < 16:
			lengths[i] = sym
			i++

		case sym == 16:
			if i == 0 {
				return nil, nil, ErrInvalidRepeat
			}
			extra, err := br.ReadBitsLSB(2)
			if err != nil {
				return nil, nil, err
			}
			rep := 3 + int(extra)
			if i+rep > total {
				return nil, nil, ErrLengthsOverflow
			}
			prev := lengths[i-1]
			for ; rep > 0; rep-- {
				lengths[i] = prev
				i++
			}

		case sym == 17:
			extra, err := br.ReadBitsLSB(3)
			if err != nil {
				return nil, nil, err
			}
			rep := 3 + int(extra)
			if i+rep > total {
				return nil, nil, ErrLengthsOverflow
			}
			for ; rep > 0; rep-- {
				lengths[i] = 0
				i++
			}

		case sym == 18:
			extra, err := br.ReadBitsLSB(7)
			if err != nil {
				return nil, nil, err
			}
			rep := 11 + int(extra)
			if i+rep > total {
				return nil, nil, ErrLengthsOverflow
			}
			for ; rep > 0; rep-- {
				lengths[i] = 0
				i++
			}

		default:
			return nil, nil, ErrInvalidLengthSymbol
		}
	}

	lit, err = huffman.Build(lengths[:nlit])
	if err != nil {
		return nil, nil, err
	}
	dist, err = huffman.Build(lengths[nlit:])
	if err != nil {
		return nil, nil, err
	}
	return lit, dist, nil
}
