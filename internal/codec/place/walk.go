package place

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/zeusync/scenecore/internal/core/instance"
	"github.com/zeusync/scenecore/internal/core/observability/log"
)

// Snapshot captures the tree rooted at n. When n is its context's root the
// services are captured as well.
func Snapshot(n *instance.Instance) (*Document, error) {
	root, err := snapshotNode(n)
	if err != nil {
		return nil, err
	}
	doc := &Document{Format: Format, Version: Version, Root: root}
	if n != n.Context().Root() {
		return doc, nil
	}
	if doc.Services, err = snapshotServices(n.Context().Services()); err != nil {
		return nil, err
	}
	return doc, nil
}

func snapshotNode(n *instance.Instance) (node *Node, err error) {
	if err := n.BeforeSerialization(); err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, n.AfterSerialization())
		if err != nil {
			node = nil
		}
	}()

	node = &Node{Class: n.ClassName(), Name: n.Name()}
	if !n.Kind().Singleton {
		node.UniqueID = n.UniqueID()
	}
	if pc, ok := instance.As[instance.PropertyCodec](n); ok {
		node.Properties = pc.Properties()
	}
	for _, ch := range n.GetChildren() {
		c, err := snapshotNode(ch)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, c)
	}
	return node, nil
}

// Load replaces the contents of into with doc. into keeps its own kind; the
// root entry only contributes name, properties and children.
func Load(doc *Document, into *instance.Instance) error {
	if err := doc.validate(); err != nil {
		return err
	}
	if doc.Root.Class != into.ClassName() {
		return fmt.Errorf("load place: root is %s, target is %s", doc.Root.Class, into.ClassName())
	}
	ctx := into.Context()
	if err := loadInto(into, doc.Root); err != nil {
		return err
	}
	if len(doc.Services) > 0 && into != ctx.Root() {
		return fmt.Errorf("load place: services only load into the root")
	}
	for _, s := range doc.Services {
		svc, err := ctx.GetOrCreate(s.Class)
		if err != nil {
			return fmt.Errorf("load service %s: %w", s.Class, err)
		}
		if err := loadInto(svc, s); err != nil {
			return err
		}
	}
	into.Logger().Debug("place loaded",
		log.Int("services", len(doc.Services)),
		log.Int("descendants", len(into.GetDescendants())))
	return nil
}

func loadInto(n *instance.Instance, node *Node) error {
	if err := n.BeforeDeserialization(); err != nil {
		return err
	}
	if node.Name != "" {
		n.SetName(node.Name)
	}
	if len(node.Properties) > 0 {
		pc, ok := instance.As[instance.PropertyCodec](n)
		if !ok {
			return fmt.Errorf("load %s: %s has no properties", n.FullName(), n.ClassName())
		}
		if err := pc.SetProperties(maps.Clone(node.Properties)); err != nil {
			return fmt.Errorf("load %s: %w", n.FullName(), err)
		}
	}
	for _, c := range node.Children {
		child, err := n.Context().New(c.Class)
		if err != nil {
			return fmt.Errorf("load child of %s: %w", n.FullName(), err)
		}
		if c.UniqueID != "" {
			if _, err := child.SetUniqueID(c.UniqueID); err != nil {
				return fmt.Errorf("load %s: %w", c.Class, err)
			}
		}
		if err := child.SetParent(n); err != nil || child.Parent() != n {
			_ = child.Destroy()
			if err == nil {
				err = fmt.Errorf("%s rejected parent %s", c.Class, n.ClassName())
			}
			return fmt.Errorf("load child of %s: %w", n.FullName(), err)
		}
		if err := loadInto(child, c); err != nil {
			return err
		}
	}
	return n.AfterDeserialization()
}

// snapshotServices captures services in kind order. Services destroyed
// since the map was taken are skipped.
func snapshotServices(services map[string]*instance.Instance) ([]*Node, error) {
	var out []*Node
	for _, kind := range slices.Sorted(maps.Keys(services)) {
		svc := services[kind]
		if svc == nil || svc.IsDestroyed() {
			continue
		}
		node, err := snapshotNode(svc)
		if errors.Is(err, instance.ErrAlreadyDisposed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}
