package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/zeusync/scenecore/internal/core/instance"
)

// DumpTree writes an indented listing of the tree, one instance per line.
func (e *Engine) DumpTree(w io.Writer) error {
	return dump(w, e.tree.Root(), 0)
}

func dump(w io.Writer, n *instance.Instance, depth int) error {
	flags := ""
	if n.ParentLocked() {
		flags += " locked"
	}
	if !n.Archivable() {
		flags += " transient"
	}
	if _, err := fmt.Fprintf(w, "%s%s (%s)%s\n", strings.Repeat("  ", depth), n.Name(), n.ClassName(), flags); err != nil {
		return err
	}
	for _, ch := range n.GetChildren() {
		if err := dump(w, ch, depth+1); err != nil {
			return err
		}
	}
	return nil
}
