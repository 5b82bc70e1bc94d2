// Package genpatch builds weave.Patch values for tests, so test cases read
// like the scenarios in the spec rather than hand-assembled Atom literals.
//
// It offers two constructors: Shorthand, a terse ASCII notation ported from
// libsburb's debug helper of the same name, and FromDiff, which synthesizes
// a patch turning one known string into another by running a Myers diff
// and emitting the edit as deletion/insertion chains — useful for
// convergence and idempotence property tests that need many small, varied
// patches without writing each one out by hand.
package genpatch

import (
	"fmt"
	"strings"

	"github.com/mbrt/weave/weave"
)

// Shorthand parses s into a patch. s is a sequence of fixed-width, 5-rune
// atom tokens — char, predYarn, predOffset, idYarn, idOffset — exactly the
// layout shorthand_to_patch uses in util.c: '0' means yarn 0, any other
// letter names yarn (letter-'a'+1), and each offset is a single decimal
// digit. '^' stands for a deletion marker, '*' for a save-awareness marker,
// any other rune is itself the atom's character. Whitespace between tokens
// is ignored, purely for test readability — the original format has none.
//
// chainLengths says how many consecutive tokens belong to each chain, in
// order; a chain's type is inferred from its first atom.
func Shorthand(s string, chainLengths ...int) (*weave.Patch, error) {
	clean := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' {
			return -1
		}
		return r
	}, s)

	atomCount := 0
	for _, n := range chainLengths {
		atomCount += n
	}
	runes := []rune(clean)
	if len(runes) != 5*atomCount {
		return nil, fmt.Errorf("genpatch: shorthand %q has %d runes, want %d for %d atoms",
			s, len(runes), 5*atomCount, atomCount)
	}

	atoms := make([]weave.Atom, atomCount)
	for i := 0; i < atomCount; i++ {
		tok := runes[i*5 : i*5+5]
		ch := tok[0]
		switch ch {
		case '^':
			ch = weave.CharDel
		case '*':
			ch = weave.CharSave
		}
		id, err := packShorthand(tok[3], tok[4])
		if err != nil {
			return nil, err
		}
		pred, err := packShorthand(tok[1], tok[2])
		if err != nil {
			return nil, err
		}
		atoms[i] = weave.Atom{ID: id, Pred: pred, Char: ch}
	}

	chains := make([]weave.Chain, len(chainLengths))
	idx := 0
	for i, n := range chainLengths {
		chainAtoms := append([]weave.Atom(nil), atoms[idx:idx+n]...)
		chains[i] = weave.Chain{Type: weave.ClassifyChain(chainAtoms[0].Char), Atoms: chainAtoms}
		idx += n
	}
	return &weave.Patch{Chains: chains}, nil
}

func packShorthand(yarnChar, offsetChar rune) (weave.AtomID, error) {
	var yarn uint32
	if yarnChar != '0' {
		if yarnChar < 'a' || yarnChar > 'z' {
			return 0, fmt.Errorf("genpatch: invalid yarn letter %q", yarnChar)
		}
		yarn = uint32(yarnChar-'a') + 1
	}
	if offsetChar < '0' || offsetChar > '9' {
		return 0, fmt.Errorf("genpatch: invalid offset digit %q", offsetChar)
	}
	offset := uint32(offsetChar - '0')
	return weave.PackID(yarn, offset), nil
}

// FromDiff synthesizes a patch that transforms s1 into s2, for a single
// author writing on yarn starting at nextOffset (the first unused offset on
// that yarn). visibleIDs holds the atom id backing each rune of s1, in
// order — typically gathered by scouring a weave and recording each visible
// atom's id alongside its character.
//
// The diff is walked once: runs of consecutive insertions become a single
// insertion chain anchored on whatever s1 atom (or weave.StartID, at the
// very beginning) precedes them, and every deletion becomes its own
// tombstone naming the s1 atom it targets. Returns a patch with no chains
// if s1 already equals s2.
func FromDiff(yarn uint32, nextOffset uint32, visibleIDs []weave.AtomID, s1, s2 string) (*weave.Patch, error) {
	ops, err := diff(s1, s2)
	if err != nil {
		return nil, err
	}

	offset := nextOffset
	pred := weave.StartID
	var chains []weave.Chain
	var delChain []weave.Atom
	var insChain []weave.Atom
	j := 0 // index into visibleIDs, tracking position consumed from s1

	flushIns := func() {
		if len(insChain) > 0 {
			chains = append(chains, weave.Chain{Type: weave.InsertionChain, Atoms: insChain})
			insChain = nil
		}
	}

	for _, op := range ops {
		switch op.op {
		case keep:
			flushIns()
			pred = visibleIDs[j]
			j++
		case del:
			flushIns()
			target := visibleIDs[j]
			j++
			delChain = append(delChain, weave.Atom{ID: weave.PackID(yarn, offset), Pred: target, Char: weave.CharDel})
			offset++
			pred = target
		case insert:
			p := pred
			if len(insChain) > 0 {
				p = insChain[len(insChain)-1].ID
			}
			insChain = append(insChain, weave.Atom{ID: weave.PackID(yarn, offset), Pred: p, Char: op.char})
			offset++
		}
	}
	flushIns()
	if len(delChain) > 0 {
		chains = append(chains, weave.Chain{Type: weave.DeletionChain, Atoms: delChain})
	}

	// Chains are appended in diff-walk order, which need not match
	// ascending atom offset (a deletion run and the insertion run that
	// follows it in the walk can interleave); weave.Patch requires its
	// first chain to hold the lowest-offset atom so readiness checks see
	// the true start of the patch's contiguous offset range.
	sortChainsByMinOffset(chains)

	return &weave.Patch{Chains: chains}, nil
}

func sortChainsByMinOffset(chains []weave.Chain) {
	minOffset := func(c weave.Chain) uint32 {
		m := c.Atoms[0].ID.Offset()
		for _, a := range c.Atoms[1:] {
			if o := a.ID.Offset(); o < m {
				m = o
			}
		}
		return m
	}
	for i := 1; i < len(chains); i++ {
		for k := i; k > 0 && minOffset(chains[k-1]) > minOffset(chains[k]); k-- {
			chains[k-1], chains[k] = chains[k], chains[k-1]
		}
	}
}
