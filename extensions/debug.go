package extensions

import (
	"fmt"
	"sort"

	"github.com/m1gwings/treedrawer/tree"
	"github.com/pumped-fn/operation"
)

// RenderTree draws a Client's registered entries as ASCII art: one child of
// the root per entry, sorted by path and labelled with the full path and
// state type, with a loading marker on entries that currently have a task
// in flight. Path components are not split into nested branches.
func RenderTree(c *operation.Client) string {
	entries := c.DebugEntries()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path.String() < entries[j].Path.String()
	})

	root := tree.NewTree(tree.NodeString("client"))
	for _, e := range entries {
		addBranch(root, e)
	}
	return root.String()
}

func addBranch(root *tree.Tree, e operation.PathEntryInfo) {
	label := e.Path.String() + " (" + e.StateType + ")"
	if e.Loading {
		label += " [loading]"
	}
	root.AddChild(tree.NodeString(label))
}

// FormatPath renders a Path the way RenderTree labels it, for logging
// outside the context of a Client.
func FormatPath(p operation.Path) string {
	return fmt.Sprintf("%s", p.String())
}
