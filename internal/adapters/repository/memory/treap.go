package memory

import (
	"math/rand/v2"
)

// Treap ordered by rank: higher total first, lower seq on ties.
// Every node carries its subtree size so rank and positional
// lookups are O(log n) expected.

type rankKey struct {
	total int64
	seq   int64
}

// before reports whether a ranks above b.
func (a rankKey) before(b rankKey) bool {
	if a.total != b.total {
		return a.total > b.total
	}
	return a.seq < b.seq
}

type node struct {
	key   rankKey
	id    string
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

type treap struct {
	root *node
	rng  *rand.Rand
}

func newTreap(seed uint64) *treap {
	return &treap{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))} //nolint:gosec // balancing, not security
}

func (t *treap) insert(key rankKey, id string) {
	t.root = t.insertAt(t.root, &node{key: key, id: id, prio: t.rng.Uint64(), size: 1})
}

func (t *treap) insertAt(n, nn *node) *node {
	if n == nil {
		return nn
	}
	if nn.key.before(n.key) {
		n.left = t.insertAt(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = t.insertAt(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func (t *treap) delete(key rankKey) {
	t.root = deleteAt(t.root, key)
}

func deleteAt(n *node, key rankKey) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.key == key:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteAt(n.right, key)
		} else {
			n = rotateLeft(n)
			n.left = deleteAt(n.left, key)
		}
	case key.before(n.key):
		n.left = deleteAt(n.left, key)
	default:
		n.right = deleteAt(n.right, key)
	}
	fix(n)
	return n
}

// rank returns the 1-based position of key, or 0 if absent.
func (t *treap) rank(key rankKey) int {
	pos := 0
	for n := t.root; n != nil; {
		switch {
		case n.key == key:
			return pos + nsize(n.left) + 1
		case key.before(n.key):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collect appends ids at positions [offset, offset+limit) in rank order.
func collect(n *node, offset, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	left := nsize(n.left)
	if offset < left {
		collect(n.left, offset, limit, out)
	}
	if len(*out) >= limit {
		return
	}
	if offset <= left {
		*out = append(*out, n.id)
	}
	collect(n.right, max(offset-left-1, 0), limit, out)
}

func (t *treap) slice(offset, limit int) []string {
	out := make([]string, 0, max(min(limit, nsize(t.root)-offset), 0))
	collect(t.root, offset, limit, &out)
	return out
}

func (t *treap) len() int { return nsize(t.root) }
