package symtab

// Namespace is a node in the compile-time namespace tree. Namespaces may
// declare entries directly and may "use" sibling namespaces, making
// their entries visible unqualified (§3, §4.3).
type Namespace struct {
	Name     string
	Parent   *Namespace
	Children map[string]*Namespace
	Entries  map[string]*Entry
	Usings   []*Namespace
}

// NewNamespace creates an empty namespace under parent (nil for the
// root).
func NewNamespace(name string, parent *Namespace) *Namespace {
	return &Namespace{
		Name:     name,
		Parent:   parent,
		Children: make(map[string]*Namespace),
		Entries:  make(map[string]*Entry),
	}
}

// childOrCreate returns the named child namespace, creating it if
// missing (§4.3 add-namespace / pushNamespace(names)).
func (ns *Namespace) childOrCreate(name string) *Namespace {
	if child, ok := ns.Children[name]; ok {
		return child
	}
	child := NewNamespace(name, ns)
	ns.Children[name] = child
	return child
}

// resolve looks up a dotted path starting from ns: descend through
// Children for every path element but the last, then resolve the final
// element as a direct entry, a child namespace, or - failing both - by
// walking Usings transitively. visited guards against using-cycles.
func (ns *Namespace) resolve(path []string, visited map[*Namespace]bool) (*Entry, bool) {
	if visited[ns] {
		return nil, false
	}
	visited[ns] = true

	if len(path) > 1 {
		if child, ok := ns.Children[path[0]]; ok {
			if e, ok := child.resolve(path[1:], visited); ok {
				return e, true
			}
		}
		for _, u := range ns.Usings {
			if e, ok := u.resolve(path, visited); ok {
				return e, true
			}
		}
		return nil, false
	}

	name := path[0]
	if e, ok := ns.Entries[name]; ok {
		return e, true
	}
	if child, ok := ns.Children[name]; ok {
		return &Entry{Kind: EntrySubNamespace, Namespace: child}, true
	}
	for _, u := range ns.Usings {
		if e, ok := u.resolve(path, visited); ok {
			return e, true
		}
	}
	return nil, false
}
