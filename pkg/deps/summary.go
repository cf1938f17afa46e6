package deps

// Summary holds aggregate counts for a dependency tree. It is derived by
// traversal and never mutated in place.
type Summary struct {
	TotalNodes     int `json:"total_nodes"`
	UniquePackages int `json:"unique_packages"` // distinct (name, version) pairs
	MaxDepth       int `json:"max_depth"`
	CircularCount  int `json:"circular_count"`
	DuplicateCount int `json:"duplicate_count"`
}

// Summarize recomputes aggregate counts for the tree rooted at root.
func Summarize(root *Node) Summary {
	s := Summary{}
	unique := make(map[string]bool)

	var walk func(n *Node)
	walk = func(n *Node) {
		s.TotalNodes++
		unique[n.Ref()] = true
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
		if n.IsCircular {
			s.CircularCount++
		}
		if n.IsDuplicate {
			s.DuplicateCount++
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)

	s.UniquePackages = len(unique)
	return s
}

// CountNodes returns the total number of nodes in the tree.
func CountNodes(root *Node) int {
	count := 1
	for _, c := range root.Children {
		count += CountNodes(c)
	}
	return count
}

// Flatten returns the first occurrence of every distinct (name, version)
// pair below the root, in depth-first declaration order. The root itself
// is excluded; it represents the project under scan, not a dependency.
func Flatten(root *Node) []*Node {
	var out []*Node
	seen := map[string]bool{root.Ref(): true}

	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			if !seen[c.Ref()] {
				seen[c.Ref()] = true
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}
