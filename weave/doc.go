/*
Package weave implements a Causal-Tree text CRDT engine, in the Grishchenko
"weave" tradition described by Victor Grishchenko [1] and implemented in C by
the libsburb project [2].

A weave is a totally-ordered linearization of atoms — small, immutable edit
operations produced by many authors ("yarns") — that embeds a causal tree:
every atom's predecessor appears earlier in the sequence, and a subtree's
atoms form one contiguous run. Authors exchange batches of atoms ("patches")
out of band and in any order; applying a patch never requires renumbering or
rewriting history, only splicing new atoms into the right place. Reading the
weave back out ("scouring") walks it once, skipping tombstones and control
atoms, and yields the text every replica converges to regardless of the
order patches arrived in.

[1]: GRISHCHENKO, VICTOR. Causal trees: towards real-time read-write hypertext.
[2]: PeterScott/libsburb (C reference implementation).
*/
package weave
