// Package menutree turns flat parent-referencing menu items into an ordered
// forest.
package menutree

import (
	"sort"

	"github.com/SAP-F-2025/college-portal-service/internal/models"
)

// Options selects which items take part in a tree or listing.
type Options struct {
	// Role limits items to public ones and those requiring Role. Empty means
	// no role filtering.
	Role models.UserRole
	// ActiveOnly drops items with isActive=false.
	ActiveOnly bool
}

// Visible reports whether item passes the filters in opts.
func Visible(item *models.MenuItem, opts Options) bool {
	if opts.ActiveOnly && !item.IsActive {
		return false
	}
	if opts.Role != "" && !item.AllowsRole(opts.Role) {
		return false
	}
	return true
}

// Filter returns the visible items in input order.
func Filter(items []models.MenuItem, opts Options) []models.MenuItem {
	out := make([]models.MenuItem, 0, len(items))
	for i := range items {
		if Visible(&items[i], opts) {
			out = append(out, items[i])
		}
	}
	return out
}

// Build filters items and links each one under its parent. Items whose
// parent is missing or filtered out become roots, as do items on a parent
// loop.
// Roots and every child list are sorted by order, ties keeping input order.
func Build(items []models.MenuItem, opts Options) []*models.MenuNode {
	visible := Filter(items, opts)

	nodes := make(map[string]*models.MenuNode, len(visible))
	for i := range visible {
		nodes[visible[i].ID] = &models.MenuNode{MenuItem: visible[i], Children: []*models.MenuNode{}}
	}

	roots := make([]*models.MenuNode, 0)
	for i := range visible {
		node := nodes[visible[i].ID]
		parent, ok := nodes[visible[i].Parent()]
		if ok && !onCycle(nodes, visible[i].ID) {
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	return roots
}

// onCycle reports whether following parents from id leads back to id. An
// item that merely hangs below a cycle is not on it.
func onCycle(nodes map[string]*models.MenuNode, id string) bool {
	cur := id
	for steps := 0; steps <= len(nodes); steps++ {
		n, ok := nodes[cur]
		if !ok {
			return false
		}
		next := n.Parent()
		if next == "" {
			return false
		}
		if next == id {
			return true
		}
		cur = next
	}
	return false
}

func sortNodes(nodes []*models.MenuNode) {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Order < nodes[j].Order })
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// Flatten filters items and sorts them by (order, createdAt).
func Flatten(items []models.MenuItem, opts Options) []models.MenuItem {
	out := Filter(items, opts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out
}

// Walk visits every node depth-first, parents before children.
func Walk(forest []*models.MenuNode, fn func(n *models.MenuNode, depth int)) {
	var visit func(ns []*models.MenuNode, depth int)
	visit = func(ns []*models.MenuNode, depth int) {
		for _, n := range ns {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(forest, 0)
}

// Children returns the ids of items whose parent is id.
func Children(items []models.MenuItem, id string) []string {
	var out []string
	for i := range items {
		if items[i].Parent() == id && id != "" {
			out = append(out, items[i].ID)
		}
	}
	return out
}

// IsDescendant reports whether candidate sits somewhere below ancestor.
func IsDescendant(items []models.MenuItem, ancestor, candidate string) bool {
	parents := make(map[string]string, len(items))
	for i := range items {
		parents[items[i].ID] = items[i].Parent()
	}
	cur := candidate
	for steps := 0; steps <= len(items); steps++ {
		p, ok := parents[cur]
		if !ok || p == "" {
			return false
		}
		if p == ancestor {
			return true
		}
		cur = p
	}
	return false
}
