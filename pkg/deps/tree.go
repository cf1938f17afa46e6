package deps

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/matzehuels/depvet/pkg/cache"
	"github.com/matzehuels/depvet/pkg/errors"
)

// Node is one package in a resolved dependency tree.
//
// The root node has depth 0 and no parent and is never flagged circular
// or duplicate. A node is terminal (no children) when it is circular,
// when its (name, version) pair was already expanded elsewhere in the
// tree, or when the depth limit was reached. Invariant: every child's
// depth is its parent's depth plus one.
type Node struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	Depth             int      `json:"depth"`
	Parent            string   `json:"parent,omitempty"`
	Children          []*Node  `json:"children,omitempty"`
	IsCircular        bool     `json:"is_circular"`
	IsDuplicate       bool     `json:"is_duplicate"`
	DuplicateVersions []string `json:"duplicate_versions,omitempty"` // all distinct versions seen for this name
	CircularPath      []string `json:"circular_path,omitempty"`      // ancestor trace root..self when circular
}

// Ref returns the node's "name@version" identifier.
func (n *Node) Ref() string { return n.Name + "@" + n.Version }

// MetadataCache is the cache instantiation shared by the tree builder
// and the scan orchestrator.
type MetadataCache = cache.Cache[*PackageMetadata, *Node]

// Builder expands direct dependencies into a full transitive tree.
//
// The traversal maps (visited pairs, versions per name, skip counter) are
// scoped to a single BuildTree call and reset at its start. A Builder
// must not run two BuildTree calls concurrently; use one Builder per
// concurrent scan, sharing the cache.
type Builder struct {
	fetcher Fetcher
	cache   *MetadataCache
	opts    Options
	sem     *semaphore.Weighted

	mu       sync.Mutex
	visited  map[string]map[string]bool // name -> versions already fully expanded
	versions map[string]map[string]bool // name -> all versions encountered in this tree
	skipped  int
}

// NewBuilder creates a Builder using the given fetcher and shared cache.
func NewBuilder(fetcher Fetcher, c *MetadataCache, opts Options) *Builder {
	opts = opts.WithDefaults()
	return &Builder{
		fetcher: fetcher,
		cache:   c,
		opts:    opts,
		sem:     semaphore.NewWeighted(int64(opts.Concurrency)),
	}
}

// BuildTree resolves the full transitive graph below a root manifest and
// returns the tree plus its total node count.
//
// Failed child resolutions (network errors, timeouts, unresolvable
// ranges) drop the affected subtree and are tallied in [Builder.Skipped];
// they never abort the rest of the scan. Children of each node are
// fetched concurrently under the global limit and reassembled in the
// declaration order of the dependency map, so tree shape is deterministic
// for a given input.
func (b *Builder) BuildTree(ctx context.Context, rootName, rootVersion string, directDeps map[string]string) (*Node, int) {
	b.mu.Lock()
	b.visited = make(map[string]map[string]bool)
	b.versions = make(map[string]map[string]bool)
	b.skipped = 0
	b.mu.Unlock()

	root := &Node{Name: rootName, Version: rootVersion}
	b.markVisited(rootName, rootVersion)

	b.expand(ctx, root, directDeps, []string{root.Ref()})
	if b.opts.DetectDuplicates {
		b.finalizeDuplicates(root)
	}
	return root, CountNodes(root)
}

// Skipped returns how many candidate children were dropped during the
// most recent BuildTree call.
func (b *Builder) Skipped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.skipped
}

// expand fetches and attaches the children of parent. It reports whether
// the subtree below parent is complete, i.e. no child was dropped,
// truncated by a limit, or cut short as an already-visited terminal.
// Only complete subtrees are eligible for the tree cache.
func (b *Builder) expand(ctx context.Context, parent *Node, depMap map[string]string, path []string) bool {
	if len(depMap) == 0 {
		return true
	}
	if !b.opts.AnalyzeTransitive && parent.Depth >= 1 {
		return false
	}
	if b.opts.MaxDepth > 0 && parent.Depth >= b.opts.MaxDepth {
		return false
	}

	// Dependency maps arrive as Go maps, so declaration order is defined
	// as sorted key order to keep tree shape deterministic.
	names := slices.Sorted(maps.Keys(depMap))

	type childResult struct {
		node     *Node
		complete bool
	}
	results := make([]childResult, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			n, complete := b.child(ctx, parent, name, depMap[name], path)
			results[i] = childResult{node: n, complete: complete}
		}(i, name)
	}
	wg.Wait()

	complete := true
	for _, r := range results {
		if r.node == nil {
			complete = false
			continue
		}
		if !r.complete {
			complete = false
		}
		parent.Children = append(parent.Children, r.node)
	}
	return complete
}

// child resolves one (name, range) pair into a tree node, recursing into
// its dependencies unless it is circular or already expanded. A nil node
// means the child was dropped.
func (b *Builder) child(ctx context.Context, parent *Node, name, versionRange string, path []string) (*Node, bool) {
	circular := b.opts.DetectCircular && onPath(path, name)
	if circular && b.opts.StopOnCircular {
		return nil, false
	}

	meta, err := b.fetchMetadata(ctx, name)
	if err != nil {
		b.recordSkip()
		return nil, false
	}
	version, err := ResolveVersion(meta, versionRange)
	if err != nil {
		b.recordSkip()
		return nil, false
	}

	node := &Node{
		Name:       name,
		Version:    version,
		Depth:      parent.Depth + 1,
		Parent:     parent.Name,
		IsCircular: circular,
	}

	if circular {
		node.CircularPath = append(slices.Clone(path), node.Ref())
		b.recordVersion(name, version)
		return node, false
	}

	if b.markVisited(name, version) {
		// Already expanded elsewhere in this tree (diamond dependency):
		// emit a terminal node instead of re-expanding.
		return node, false
	}

	if cached, ok := b.cachedSubtree(node.Ref(), parent.Depth+1); ok {
		cached.Parent = parent.Name
		return cached, true
	}

	// Clone before appending: sibling goroutines share the path slice's
	// backing array.
	complete := b.expand(ctx, node, meta.DependenciesOf(version), append(slices.Clone(path), node.Ref()))
	if complete {
		b.cache.SetTree(node.Ref(), detach(node))
	}
	return node, complete
}

// fetchMetadata resolves metadata through the cache, falling back to the
// fetcher under the global concurrency limit with a per-fetch timeout.
func (b *Builder) fetchMetadata(ctx context.Context, name string) (*PackageMetadata, error) {
	if m, ok := b.cache.GetMetadata(name); ok {
		return m, nil
	}

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)

	fctx, cancel := context.WithTimeout(ctx, b.opts.FetchTimeout)
	defer cancel()

	m, err := b.fetcher.Fetch(fctx, name)
	if err != nil {
		if fctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "fetch %s timed out", name)
		}
		return nil, err
	}
	b.cache.SetMetadata(name, m)
	return m, nil
}

// cachedSubtree returns a cloned, re-based copy of a previously built
// subtree if one is cached and it fits under the current limits. The
// clone's packages are recorded into the traversal state so duplicate
// detection and terminal-node shortcuts see them.
func (b *Builder) cachedSubtree(ref string, depth int) (*Node, bool) {
	if !b.opts.AnalyzeTransitive {
		return nil, false
	}
	cached, ok := b.cache.GetTree(ref)
	if !ok {
		return nil, false
	}
	if b.opts.MaxDepth > 0 && depth+height(cached) > b.opts.MaxDepth {
		return nil, false
	}

	clone := rebase(cached, depth, "")
	b.recordSubtree(clone)
	return clone, true
}

// markVisited records (name, version) as fully expanded, also counting
// it toward version tracking. Reports whether the pair was already
// visited.
func (b *Builder) markVisited(name, version string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.visited[name] == nil {
		b.visited[name] = make(map[string]bool)
	}
	if b.visited[name][version] {
		return true
	}
	b.visited[name][version] = true
	b.recordVersionLocked(name, version)
	return false
}

func (b *Builder) recordVersion(name, version string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordVersionLocked(name, version)
}

func (b *Builder) recordVersionLocked(name, version string) {
	if b.versions[name] == nil {
		b.versions[name] = make(map[string]bool)
	}
	b.versions[name][version] = true
}

func (b *Builder) recordSubtree(n *Node) {
	b.mu.Lock()
	if b.visited[n.Name] == nil {
		b.visited[n.Name] = make(map[string]bool)
	}
	b.visited[n.Name][n.Version] = true
	b.recordVersionLocked(n.Name, n.Version)
	b.mu.Unlock()

	for _, c := range n.Children {
		b.recordSubtree(c)
	}
}

func (b *Builder) recordSkip() {
	b.mu.Lock()
	b.skipped++
	b.mu.Unlock()
}

// finalizeDuplicates flags every node whose name resolved to more than
// one distinct version in this tree, except the first occurrence in
// depth-first order, and attaches the full version list to flagged nodes.
func (b *Builder) finalizeDuplicates(root *Node) {
	b.mu.Lock()
	all := make(map[string][]string, len(b.versions))
	for name, vs := range b.versions {
		if len(vs) > 1 {
			all[name] = slices.Sorted(maps.Keys(vs))
		}
	}
	b.mu.Unlock()

	seen := make(map[string]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if versions, dup := all[n.Name]; dup && seen[n.Name] && n.Depth > 0 {
			n.IsDuplicate = true
			n.DuplicateVersions = versions
		}
		seen[n.Name] = true
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
}

// onPath reports whether name appears, at any version, in the ancestor
// path. Entries are "name@version" strings; the version suffix starts at
// the last "@" so scoped names like "@types/node" compare correctly.
func onPath(path []string, name string) bool {
	for _, ref := range path {
		if idx := strings.LastIndex(ref, "@"); idx > 0 && ref[:idx] == name {
			return true
		}
	}
	return false
}

// detach returns a deep copy of a subtree normalized to depth 0 with no
// parent, suitable for storing in the tree cache.
func detach(n *Node) *Node {
	return rebase(n, 0, "")
}

// rebase deep-copies a subtree shifting depths so the copy's root sits at
// depth. Duplicate flags are cleared; they are recomputed per scan.
func rebase(n *Node, depth int, parent string) *Node {
	clone := &Node{
		Name:         n.Name,
		Version:      n.Version,
		Depth:        depth,
		Parent:       parent,
		IsCircular:   n.IsCircular,
		CircularPath: slices.Clone(n.CircularPath),
	}
	for _, c := range n.Children {
		clone.Children = append(clone.Children, rebase(c, depth+1, n.Name))
	}
	return clone
}

// height returns the number of edges on the longest path from n to a leaf.
func height(n *Node) int {
	h := 0
	for _, c := range n.Children {
		if ch := height(c) + 1; ch > h {
			h = ch
		}
	}
	return h
}
