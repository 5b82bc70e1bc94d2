package weave

import "strings"

// Scour walks the weave once and returns the visible text it projects:
// every atom except control atoms (START, END, DEL, SAVE) and tombstoned
// targets.
//
// An atom is visible unless the very next atom in the linearization is a
// DEL whose predecessor names it — tombstones always hug their target, so
// this adjacency check is equivalent to (and far cheaper than) searching
// the rest of the weave for a deletion. Mirrors weave_scour_print in
// util.c.
func (w *Weave) Scour() string {
	var b strings.Builder
	for i := 0; i < w.Len(); i++ {
		a := w.AtomAt(i)
		if !IsVisible(a.Char) {
			continue
		}
		if i+1 < w.Len() {
			next := w.AtomAt(i + 1)
			if next.IsDel() && next.Pred == a.ID {
				continue
			}
		}
		b.WriteRune(a.Char)
	}
	return b.String()
}

// Scourer streams the weave's visible text in caller-sized chunks, for
// callers that would rather not materialize the whole string at once.
type Scourer struct {
	w   *Weave
	pos int
}

// NewScourer returns a Scourer starting at the beginning of the weave.
func (w *Weave) NewScourer() *Scourer {
	return &Scourer{w: w}
}

// Next fills buf with up to len(buf) visible runes and returns how many it
// wrote. It returns 0 once the weave is exhausted.
func (s *Scourer) Next(buf []rune) int {
	n := 0
	for n < len(buf) && s.pos < s.w.Len() {
		a := s.w.AtomAt(s.pos)
		s.pos++
		if !IsVisible(a.Char) {
			continue
		}
		if s.pos < s.w.Len() {
			next := s.w.AtomAt(s.pos)
			if next.IsDel() && next.Pred == a.ID {
				continue
			}
		}
		buf[n] = a.Char
		n++
	}
	return n
}
