package main

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/mbrt/weave/weave"
)

// ParsePatches reads the text-ingest format spec.md §6 describes: a stream
// of whitespace-separated unsigned integers. Each patch is a chain count,
// that many chain lengths, then one "char pred_yarn pred_offset id_yarn
// id_offset" quintuple per atom (char given as a decimal code point),
// repeated until EOF. This mirrors snarfstrip.c's fscanf loop, replacing
// fixed-size stack arrays and manual malloc with a growable []weave.Atom.
func ParsePatches(r io.Reader) ([]*weave.Patch, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	next := func() (uint64, bool, error) {
		if !sc.Scan() {
			return 0, false, sc.Err()
		}
		n, err := strconv.ParseUint(sc.Text(), 10, 32)
		if err != nil {
			return 0, true, errors.Wrapf(err, "parsing integer %q", sc.Text())
		}
		return n, true, nil
	}
	require := func() (uint64, error) {
		n, ok, err := next()
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errors.New("unexpected end of input")
		}
		return n, nil
	}

	var patches []*weave.Patch
	for {
		chainCount, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		lengths := make([]int, chainCount)
		atomTotal := 0
		for i := range lengths {
			n, err := require()
			if err != nil {
				return nil, errors.Wrap(err, "reading chain lengths")
			}
			lengths[i] = int(n)
			atomTotal += int(n)
		}

		atoms := make([]weave.Atom, atomTotal)
		for i := range atoms {
			char, err := require()
			if err != nil {
				return nil, errors.Wrap(err, "reading atom char")
			}
			predYarn, err := require()
			if err != nil {
				return nil, errors.Wrap(err, "reading atom pred yarn")
			}
			predOffset, err := require()
			if err != nil {
				return nil, errors.Wrap(err, "reading atom pred offset")
			}
			idYarn, err := require()
			if err != nil {
				return nil, errors.Wrap(err, "reading atom id yarn")
			}
			idOffset, err := require()
			if err != nil {
				return nil, errors.Wrap(err, "reading atom id offset")
			}
			atoms[i] = weave.Atom{
				ID:   weave.PackID(uint32(idYarn), uint32(idOffset)),
				Pred: weave.PackID(uint32(predYarn), uint32(predOffset)),
				Char: rune(char),
			}
		}

		chains := make([]weave.Chain, len(lengths))
		idx := 0
		for i, n := range lengths {
			if n == 0 {
				return nil, errors.Errorf("chain %d has zero atoms", i)
			}
			chainAtoms := atoms[idx : idx+n]
			chains[i] = weave.Chain{Type: weave.ClassifyChain(chainAtoms[0].Char), Atoms: chainAtoms}
			idx += n
		}
		patches = append(patches, &weave.Patch{Chains: chains})
	}
	return patches, nil
}
