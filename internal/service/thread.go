package service

import (
	"cmp"
	"iter"
	"slices"

	"atelier/internal/models"
)

// ThreadNode is one comment in an assembled thread.
type ThreadNode struct {
	Comment  models.Comment
	Children []*ThreadNode
}

// ThreadEntry is one step of a depth-first walk. Depth 0 is a top-level comment.
type ThreadEntry struct {
	Comment models.Comment
	Depth   int
}

// Thread is the comment forest of one post. Deleted comments are kept as
// placeholders so their replies stay attached.
type Thread struct {
	roots []*ThreadNode
	size  int
}

// BuildThread assembles a forest from flat rows in one pass over an id index.
// A comment whose parent is not among rows is treated as top-level. Siblings
// are ordered by upvotes descending, then oldest first.
func BuildThread(rows []*models.Comment) *Thread {
	nodes := make(map[uint]*ThreadNode, len(rows))
	for _, c := range rows {
		nodes[c.ID] = &ThreadNode{Comment: c.Placeholder()}
	}

	t := &Thread{size: len(nodes)}
	for _, c := range rows {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		t.roots = append(t.roots, node)
	}

	sortSiblings(t.roots)
	for _, n := range nodes {
		sortSiblings(n.Children)
	}
	return t
}

func sortSiblings(nodes []*ThreadNode) {
	slices.SortFunc(nodes, func(a, b *ThreadNode) int {
		if c := cmp.Compare(b.Comment.Upvotes, a.Comment.Upvotes); c != 0 {
			return c
		}
		if c := a.Comment.CreatedAt.Compare(b.Comment.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Comment.ID, b.Comment.ID)
	})
}

// Roots returns the ordered top-level nodes.
func (t *Thread) Roots() []*ThreadNode {
	return t.roots
}

// Len is the number of comments in the thread, placeholders included.
func (t *Thread) Len() int {
	return t.size
}

// All walks the thread depth-first in display order. The sequence is lazy
// and can be ranged over any number of times.
func (t *Thread) All() iter.Seq[ThreadEntry] {
	return func(yield func(ThreadEntry) bool) {
		var walk func(nodes []*ThreadNode, depth int) bool
		walk = func(nodes []*ThreadNode, depth int) bool {
			for _, n := range nodes {
				if !yield(ThreadEntry{Comment: n.Comment, Depth: depth}) {
					return false
				}
				if !walk(n.Children, depth+1) {
					return false
				}
			}
			return true
		}
		walk(t.roots, 0)
	}
}
