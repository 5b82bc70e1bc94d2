package weave

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// Wire layout (all multi-byte fields big-endian):
//
//	length_bytes   uint32   total size of the encoded patch, including itself
//	chain_count    uint8    number of chain descriptors that follow
//	chain[i]       6 bytes  { offset_bytes uint32, len_atoms uint16 }
//	atom[j]        20 bytes { id uint64, pred uint64, char uint32 }
//
// offset_bytes is the byte offset of a chain's first atom, measured from the
// start of the atom region (i.e. from the first byte after the last chain
// descriptor). Chains may appear in the atom region in any order, provided
// their descriptors point at the right offsets; atoms across chains are
// nonetheless expected to occupy one contiguous, offset-ordered run.
const (
	headerSize    = 4 + 1
	chainDescSize = 4 + 2
	atomSize      = 8 + 8 + 4
)

// ErrMalformedPatch is wrapped by every decode failure.
var ErrMalformedPatch = xerrors.New("malformed patch")

// Chain is a run of atoms sharing one wire descriptor.
type Chain struct {
	Type  ChainType
	Atoms []Atom
}

// Head returns the chain's first atom.
func (c Chain) Head() Atom { return c.Atoms[0] }

// Patch is a batch of atoms to merge into a weave, grouped into chains.
type Patch struct {
	Chains []Chain
}

// String renders p as one line per chain, each atom shown "id<-pred:char",
// the Go rendition of the original's print_patch debug dump.
func (p *Patch) String() string {
	var b strings.Builder
	for i, c := range p.Chains {
		fmt.Fprintf(&b, "chain %d (%s):", i, c.Type)
		for _, a := range c.Atoms {
			fmt.Fprintf(&b, " %s", a)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ChainCount returns the number of chains in p.
func (p *Patch) ChainCount() int { return len(p.Chains) }

// LengthAtoms returns the total number of atoms across all chains.
func (p *Patch) LengthAtoms() int {
	n := 0
	for _, c := range p.Chains {
		n += len(c.Atoms)
	}
	return n
}

// LengthBytes returns the size, in bytes, of p's wire encoding.
func (p *Patch) LengthBytes() int {
	return NecessaryBufferLength(p.ChainCount(), p.LengthAtoms())
}

// NecessaryBufferLength returns the number of bytes needed to encode a patch
// with the given chain and atom counts, per patch_necessary_buffer_length in
// patch.c.
func NecessaryBufferLength(chainCount, atomCount int) int {
	return headerSize + chainDescSize*chainCount + atomSize*atomCount
}

// Encode serializes p into its wire format.
func (p *Patch) Encode() []byte {
	buf := make([]byte, p.LengthBytes())
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(buf)))
	buf[4] = byte(p.ChainCount())

	descOff := headerSize
	atomRegion := headerSize + chainDescSize*p.ChainCount()
	byteOff := 0
	atomOff := atomRegion
	for _, c := range p.Chains {
		binary.BigEndian.PutUint32(buf[descOff:descOff+4], uint32(byteOff))
		binary.BigEndian.PutUint16(buf[descOff+4:descOff+6], uint16(len(c.Atoms)))
		descOff += chainDescSize

		for _, a := range c.Atoms {
			binary.BigEndian.PutUint64(buf[atomOff:atomOff+8], uint64(a.ID))
			binary.BigEndian.PutUint64(buf[atomOff+8:atomOff+16], uint64(a.Pred))
			binary.BigEndian.PutUint32(buf[atomOff+16:atomOff+20], uint32(a.Char))
			atomOff += atomSize
		}
		byteOff += atomSize * len(c.Atoms)
	}
	return buf
}

// ReadPatch parses a patch out of its wire encoding.
func ReadPatch(buf []byte) (*Patch, error) {
	if len(buf) < headerSize {
		return nil, xerrors.Errorf("%w: truncated header", ErrMalformedPatch)
	}
	length := binary.BigEndian.Uint32(buf[0:4])
	if int(length) != len(buf) {
		return nil, xerrors.Errorf("%w: length_bytes %d does not match buffer size %d", ErrMalformedPatch, length, len(buf))
	}
	chainCount := int(buf[4])

	descEnd := headerSize + chainDescSize*chainCount
	if len(buf) < descEnd {
		return nil, xerrors.Errorf("%w: truncated chain descriptors", ErrMalformedPatch)
	}
	atomRegion := buf[descEnd:]

	chains := make([]Chain, chainCount)
	off := headerSize
	for i := 0; i < chainCount; i++ {
		byteOff := binary.BigEndian.Uint32(buf[off : off+4])
		lenAtoms := binary.BigEndian.Uint16(buf[off+4 : off+6])
		off += chainDescSize

		start := int(byteOff)
		end := start + atomSize*int(lenAtoms)
		if start < 0 || end > len(atomRegion) {
			return nil, xerrors.Errorf("%w: chain %d offset out of range", ErrMalformedPatch, i)
		}
		atoms := make([]Atom, lenAtoms)
		for j := range atoms {
			base := start + j*atomSize
			atoms[j] = Atom{
				ID:   AtomID(binary.BigEndian.Uint64(atomRegion[base : base+8])),
				Pred: AtomID(binary.BigEndian.Uint64(atomRegion[base+8 : base+16])),
				Char: rune(binary.BigEndian.Uint32(atomRegion[base+16 : base+20])),
			}
		}
		if len(atoms) == 0 {
			return nil, xerrors.Errorf("%w: chain %d is empty", ErrMalformedPatch, i)
		}
		chains[i] = Chain{Type: ClassifyChain(atoms[0].Char), Atoms: atoms}
	}
	return &Patch{Chains: chains}, nil
}

// Readiness is the outcome of testing a patch against a weave's current
// weft.
type Readiness int

const (
	// Ready means every atom the patch depends on is already covered; it
	// can be applied immediately.
	Ready Readiness = iota
	// Blocked means the patch depends on an atom the weave hasn't seen
	// yet; it should be parked in the waiting set.
	Blocked
	// Duplicate means the weave has already applied this exact patch (or
	// an atom it introduces); it must be rejected, not reapplied.
	Duplicate
)

// Disposition is the result of BlockingID: a readiness verdict, plus — when
// Blocked — the specific atom id the patch is waiting on.
type Disposition struct {
	Status     Readiness
	BlockingID AtomID
}

// BlockingID decides whether patch can be applied against a weave whose
// current weft is weft. It implements the readiness predicate: a patch is
// ready only if the atom immediately before its first chain's head on the
// same yarn is already covered, and so is the predecessor of every
// insertion chain's head and of every atom of a deletion or save-awareness
// chain. Later atoms of an insertion chain are not checked, since their
// predecessors are earlier atoms of the same chain.
//
// If an atom the patch would introduce is already covered, the patch (or
// this part of it) has been seen before and is rejected as a duplicate
// rather than being silently reapplied.
func (p *Patch) BlockingID(weft Weft) Disposition {
	if len(p.Chains) == 0 {
		return Disposition{Status: Ready}
	}

	head := p.Chains[0].Head()
	yarn := head.ID.Yarn()
	firstOffset := head.ID.Offset()

	if weft.Get(yarn)+1 != firstOffset {
		if weft.Covers(head.ID) {
			return Disposition{Status: Duplicate}
		}
		return Disposition{Status: Blocked, BlockingID: PackID(yarn, firstOffset-1)}
	}

	for _, c := range p.Chains {
		for i, a := range c.Atoms {
			if weft.Covers(a.ID) {
				return Disposition{Status: Duplicate}
			}
			var pred AtomID
			if i == 0 {
				pred = a.Pred
			} else if c.Type != InsertionChain {
				pred = a.Pred
			}
			if pred != 0 && !weft.Covers(pred) {
				return Disposition{Status: Blocked, BlockingID: pred}
			}
		}
	}
	return Disposition{Status: Ready}
}
