package tracker

import (
	"log/slog"
	"strings"
)

// Breadcrumb is a hierarchical GPU work marker. Nodes created by one
// BreadcrumbAllocator are linked in creation order.
type Breadcrumb struct {
	Name       string
	BeginPipes Pipeline
	EndPipes   Pipeline

	parent *Breadcrumb
	next   *Breadcrumb
}

// Parent returns the enclosing breadcrumb.
func (b *Breadcrumb) Parent() *Breadcrumb { return b.parent }

// Path renders the chain from the root, for example "Frame/Scene/BasePass".
// A nil breadcrumb renders as "".
func (b *Breadcrumb) Path() string {
	if b == nil {
		return ""
	}
	var names []string
	seen := map[*Breadcrumb]bool{}
	for n := b; n != nil && !seen[n]; n = n.parent {
		seen[n] = true
		names = append(names, n.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/")
}

func (b *Breadcrumb) depth() int {
	d := 0
	for n := b.parent; n != nil && d < maxBreadcrumbDepth; n = n.parent {
		d++
	}
	return d
}

const maxBreadcrumbDepth = 256

// BreadcrumbAllocator creates breadcrumbs for one command context.
type BreadcrumbAllocator struct {
	last *Breadcrumb
}

// New creates a breadcrumb under parent, valid on pipes, and links it after
// the previously created node.
func (a *BreadcrumbAllocator) New(name string, parent *Breadcrumb, pipes Pipeline) *Breadcrumb {
	b := &Breadcrumb{Name: name, BeginPipes: pipes, EndPipes: pipes, parent: parent}
	if a.last != nil {
		a.last.next = b
	}
	a.last = b
	return b
}

// Last returns the most recently created breadcrumb.
func (a *BreadcrumbAllocator) Last() *Breadcrumb { return a.last }

// BreadcrumbRange is the span of breadcrumbs, in creation order, that a
// submitted list may begin or end.
type BreadcrumbRange struct {
	First *Breadcrumb
	Last  *Breadcrumb
}

// enumerate walks First..Last along creation order. ok is false when Last is
// not reachable from First.
func (r BreadcrumbRange) enumerate(fn func(*Breadcrumb)) (ok bool) {
	if r.First == nil {
		return r.Last == nil
	}
	seen := map[*Breadcrumb]bool{}
	for n := r.First; n != nil && !seen[n]; n = n.next {
		seen[n] = true
		fn(n)
		if n == r.Last {
			return true
		}
	}
	return false
}

// contains reports whether target is in the range or is an ancestor of its
// first or last node.
func (r BreadcrumbRange) contains(target *Breadcrumb) bool {
	found := false
	r.enumerate(func(n *Breadcrumb) {
		if n == target {
			found = true
		}
	})
	if found {
		return true
	}
	for _, start := range []*Breadcrumb{r.Last, r.First} {
		for n := start; n != nil; n = n.parent {
			if n == target {
				return true
			}
		}
	}
	return false
}

func (q *OpQueueState) beginBreadcrumb(node *Breadcrumb) {
	e := q.engine
	if !e.check(node != nil, KindBreadcrumb, nil, "Begin breadcrumb with a nil node on pipeline %s.", q.pipeline) {
		return
	}
	e.check(node.parent == q.breadcrumbs.current, KindBreadcrumb, nil,
		"Breadcrumb %q began on pipeline %s under %q, but the current breadcrumb is %q.",
		node.Path(), q.pipeline, node.parent.Path(), q.breadcrumbs.current.Path())
	e.check(e.cfg.Bypass || q.breadcrumbs.rng.contains(node), KindBreadcrumb, nil,
		"Breadcrumb %q began on pipeline %s outside the submitted breadcrumb range.", node.Path(), q.pipeline)
	e.check(node.BeginPipes.Has(q.pipeline), KindBreadcrumb, nil,
		"Breadcrumb %q began on pipeline %s, which is not in its begin pipes (%s).", node.Path(), q.pipeline, node.BeginPipes)

	q.logBreadcrumb(node, true)
	q.breadcrumbs.current = node
}

func (q *OpQueueState) endBreadcrumb(node *Breadcrumb) {
	e := q.engine
	if !e.check(node != nil, KindBreadcrumb, nil, "End breadcrumb with a nil node on pipeline %s.", q.pipeline) {
		return
	}
	e.check(node == q.breadcrumbs.current, KindBreadcrumb, nil,
		"Breadcrumb %q ended on pipeline %s, but the current breadcrumb is %q.",
		node.Path(), q.pipeline, q.breadcrumbs.current.Path())
	e.check(e.cfg.Bypass || q.breadcrumbs.rng.contains(node), KindBreadcrumb, nil,
		"Breadcrumb %q ended on pipeline %s outside the submitted breadcrumb range.", node.Path(), q.pipeline)
	e.check(node.EndPipes.Has(q.pipeline), KindBreadcrumb, nil,
		"Breadcrumb %q ended on pipeline %s, which is not in its end pipes (%s).", node.Path(), q.pipeline, node.EndPipes)

	q.logBreadcrumb(node, false)
	q.breadcrumbs.current = node.parent
}

func (q *OpQueueState) setBreadcrumbRange(rng BreadcrumbRange) {
	e := q.engine
	q.breadcrumbs.rng = rng
	e.check((rng.First == nil) == (rng.Last == nil), KindBreadcrumb, nil,
		"Breadcrumb range on pipeline %s has only one end set.", q.pipeline)

	ok := rng.enumerate(func(n *Breadcrumb) {
		seen := map[*Breadcrumb]bool{}
		for p := n; p != nil; p = p.parent {
			if seen[p] {
				e.Report(KindBreadcrumb, nil, "Circular reference detected in breadcrumb parents at %q.", p.Name)
				return
			}
			seen[p] = true
		}
	})
	e.check(ok, KindBreadcrumb, nil,
		"Breadcrumb range on pipeline %s: %q is not reachable from %q.", q.pipeline, nameOf(rng.Last), nameOf(rng.First))
}

func (q *OpQueueState) logBreadcrumb(node *Breadcrumb, begin bool) {
	if !q.engine.cfg.BreadcrumbLog {
		return
	}
	marker := "END"
	if begin {
		marker = "BEGIN"
	}
	Logger().Info("tracker: breadcrumb",
		slog.String("pipeline", q.pipeline.String()),
		slog.String("marker", marker),
		slog.String("name", strings.Repeat("\t", node.depth())+node.Name))
}

func nameOf(b *Breadcrumb) string {
	if b == nil {
		return ""
	}
	return b.Name
}
