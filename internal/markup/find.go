package markup

// Match is a macro found in a tree together with its position.
type Match struct {
	Block  *Block
	Parent *Block
	Index  int
}

// FindMacros returns every call of the named macro below root, depth first
// in document order. Raw macro content is not searched.
func FindMacros(root *Block, name string) []Match {
	var matches []Match
	walk(root, func(parent *Block, index int, b *Block) bool {
		if b.IsMacro(name) {
			matches = append(matches, Match{Block: b, Parent: parent, Index: index})
		}
		return true
	})
	return matches
}

// FirstMacro returns the first call of the named macro below root, or nil.
func FirstMacro(root *Block, name string) *Block {
	var found *Block
	walk(root, func(_ *Block, _ int, b *Block) bool {
		if b.IsMacro(name) {
			found = b
			return false
		}
		return true
	})
	return found
}

// FirstOfKind returns the first descendant of root with the given kind, or
// root itself when it matches.
func FirstOfKind(root *Block, kind Kind) *Block {
	if root == nil {
		return nil
	}
	if root.Kind == kind {
		return root
	}
	var found *Block
	walk(root, func(_ *Block, _ int, b *Block) bool {
		if b.Kind == kind {
			found = b
			return false
		}
		return true
	})
	return found
}

// ReplaceChild swaps the child at index for node. The child list is rebuilt
// rather than edited so existing Match values keep pointing at the old list.
func ReplaceChild(parent *Block, index int, node *Block) {
	children := make([]*Block, len(parent.Children))
	copy(children, parent.Children)
	children[index] = node
	parent.Children = children
}

// RemoveChild drops the child at index, rebuilding the child list.
func RemoveChild(parent *Block, index int) {
	children := make([]*Block, 0, len(parent.Children)-1)
	children = append(children, parent.Children[:index]...)
	children = append(children, parent.Children[index+1:]...)
	parent.Children = children
}

// walk visits descendants of root depth first. fn returns false to stop.
func walk(root *Block, fn func(parent *Block, index int, b *Block) bool) bool {
	if root == nil {
		return true
	}
	for i, child := range root.Children {
		if !fn(root, i, child) {
			return false
		}
		if !walk(child, fn) {
			return false
		}
	}
	return true
}
