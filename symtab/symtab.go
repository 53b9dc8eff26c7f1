package symtab

import "fmt"

// SymbolTable is the compiler's frame stack + scope stack + namespace
// tree (§4.3). The code generator drives it one statement at a time:
// pushing a frame on `def`, pushing a scope on every block-opening
// statement, declaring/defining names as it walks the AST, and popping
// scopes/frames as blocks close.
type SymbolTable struct {
	frames []*Frame
	scopes []*Scope
	root   *Namespace
	repl   bool
	anon   int
}

// New creates a symbol table with one global frame and scope rooted at
// an empty top-level namespace. In REPL mode, redefining an existing
// name replaces the old binding instead of erroring (§4.3).
func New(repl bool) *SymbolTable {
	root := NewNamespace("", nil)
	st := &SymbolTable{root: root, repl: repl}
	frame := st.pushFrame()
	st.scopes = append(st.scopes, &Scope{
		Frame:     frame,
		Namespace: root,
		Declared:  make(map[string]bool),
	})
	return st
}

func (st *SymbolTable) pushFrame() *Frame {
	f := NewFrame(len(st.frames))
	st.frames = append(st.frames, f)
	return f
}

// PushFrame opens a new lexical frame for a command body (§4.3's
// frame-per-def-nesting model: `def` inside `def` gets its own frame).
func (st *SymbolTable) PushFrame() *Frame {
	return st.pushFrame()
}

// PopFrame closes the innermost frame. It is an error to pop a frame
// that still has labels referenced but never declared (§4.3).
func (st *SymbolTable) PopFrame() error {
	if len(st.frames) == 0 {
		return fmt.Errorf("symtab: no frame to pop")
	}
	f := st.frames[len(st.frames)-1]
	if unresolved := f.UnresolvedLabels(); len(unresolved) > 0 {
		return fmt.Errorf("unresolved label(s) in frame: %v", unresolved)
	}
	st.frames = st.frames[:len(st.frames)-1]
	return nil
}

// CurrentFrame returns the innermost open frame.
func (st *SymbolTable) CurrentFrame() *Frame {
	return st.frames[len(st.frames)-1]
}

// PushScope opens a new scope over ns, owned by the current frame.
// Break/continue labels are inherited from the enclosing scope unless
// OpenLoop is subsequently called on the new scope.
func (st *SymbolTable) PushScope(ns *Namespace) *Scope {
	sc := &Scope{
		Frame:     st.CurrentFrame(),
		Namespace: ns,
		Declared:  make(map[string]bool),
	}
	if len(st.scopes) > 0 {
		parent := st.scopes[len(st.scopes)-1]
		sc.BreakLabel = parent.BreakLabel
		sc.ContinueLabel = parent.ContinueLabel
	}
	st.scopes = append(st.scopes, sc)
	return sc
}

// PopScope closes the innermost scope. It is an error to pop a scope
// that still has local commands declared but never defined (§4.3).
func (st *SymbolTable) PopScope() error {
	if len(st.scopes) == 0 {
		return fmt.Errorf("symtab: no scope to pop")
	}
	sc := st.scopes[len(st.scopes)-1]
	if len(sc.Declared) > 0 {
		var names []string
		for name := range sc.Declared {
			names = append(names, name)
		}
		return fmt.Errorf("declared but never defined: %v", names)
	}
	st.scopes = st.scopes[:len(st.scopes)-1]
	return nil
}

// CurrentScope returns the innermost open scope.
func (st *SymbolTable) CurrentScope() *Scope {
	return st.scopes[len(st.scopes)-1]
}

// OpenLoop sets fresh break/continue targets on the current scope, for
// `for`/`loop`/`do...while` bodies.
func (st *SymbolTable) OpenLoop() (breakLabel, continueLabel *Label) {
	sc := st.CurrentScope()
	sc.BreakLabel = NewLabel(fmt.Sprintf("$break%d", len(st.scopes)))
	sc.ContinueLabel = NewLabel(fmt.Sprintf("$continue%d", len(st.scopes)))
	return sc.BreakLabel, sc.ContinueLabel
}

// LblBreak/LblContinue expose the nearest enclosing loop's targets, used
// by `break`/`continue` lowering. The bool is false outside any loop.
func (st *SymbolTable) LblBreak() (*Label, bool) {
	l := st.CurrentScope().BreakLabel
	return l, l != nil
}

func (st *SymbolTable) LblContinue() (*Label, bool) {
	l := st.CurrentScope().ContinueLabel
	return l, l != nil
}

// PushNamespace creates (if missing) and enters the namespace path
// relative to the current scope's namespace, opening a new scope over
// it (§4.3 add-namespace / pushNamespace(names)).
func (st *SymbolTable) PushNamespace(path []string) *Namespace {
	ns := st.CurrentScope().Namespace
	for _, name := range path {
		ns = ns.childOrCreate(name)
	}
	st.PushScope(ns)
	return ns
}

// PushUniqueNamespace creates a fresh anonymous namespace under the
// current one and immediately `using`s it from the enclosing namespace,
// modeling lexical `include`: the included file's top-level names
// become visible unqualified without actually merging into the parent
// namespace (§4.3).
func (st *SymbolTable) PushUniqueNamespace() *Namespace {
	parent := st.CurrentScope().Namespace
	st.anon++
	name := fmt.Sprintf("$anon%d", st.anon)
	ns := NewNamespace(name, parent)
	parent.Children[name] = ns
	parent.Usings = append(parent.Usings, ns)
	st.PushScope(ns)
	return ns
}

// Using adds a namespace back-reference from the current scope's
// namespace to the namespace named by path, making its entries visible
// unqualified (§4.3, `using` statement).
func (st *SymbolTable) Using(path []string) error {
	entry, ok := st.Lookup(path)
	if !ok || entry.Kind != EntrySubNamespace {
		return fmt.Errorf("'%s' is not a namespace", joinPath(path))
	}
	cur := st.CurrentScope().Namespace
	cur.Usings = append(cur.Usings, entry.Namespace)
	return nil
}

// Lookup resolves a dotted name path: walk the scope stack from
// innermost outward; within each scope, resolve against its namespace
// (including transitive usings, cycle-guarded) (§4.3 lookup).
func (st *SymbolTable) Lookup(path []string) (*Entry, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if e, ok := st.scopes[i].Namespace.resolve(path, map[*Namespace]bool{}); ok {
			return e, true
		}
	}
	return nil, false
}

// AddVariable adds a new slot for name in the current frame and
// registers it in the current scope's namespace. In REPL mode a
// redefinition in the same namespace replaces the old entry rather than
// erroring; otherwise it is an error (§4.3 declare vs define / REPL
// mode).
func (st *SymbolTable) AddVariable(name string) (*Entry, error) {
	ns := st.CurrentScope().Namespace
	if _, exists := ns.Entries[name]; exists && !st.repl {
		return nil, fmt.Errorf("redefinition of '%s'", name)
	}
	index, err := st.CurrentFrame().AddVariable()
	if err != nil {
		return nil, err
	}
	entry := &Entry{Kind: EntryVariable, Frame: st.CurrentFrame().Depth, Index: index}
	ns.Entries[name] = entry
	return entry, nil
}

// AddTemp allocates an unnamed compiler temporary in the current frame.
func (st *SymbolTable) AddTemp() (int, error) {
	return st.CurrentFrame().AddTemp()
}

// ReleaseTemp frees a temp slot allocated by AddTemp, eagerly reclaiming
// it at the end of its enclosing expression (§4.4).
func (st *SymbolTable) ReleaseTemp(index int) {
	st.CurrentFrame().ReleaseTemp(index)
}

// DeclareCommand pre-registers a local command name with a pending
// label, so forward references compile before the body is seen. It must
// later be paired with DefineCommand.
func (st *SymbolTable) DeclareCommand(name string) *Entry {
	sc := st.CurrentScope()
	label := st.CurrentFrame().Label(name)
	entry := &Entry{Kind: EntryLocalCommand, Frame: st.CurrentFrame().Depth, Label: label}
	sc.Namespace.Entries[name] = entry
	sc.Declared[name] = true
	return entry
}

// DefineCommand marks a previously declared local command as defined,
// resolving the label at pc and returning the patch sites accumulated
// while it was still forward-declared.
func (st *SymbolTable) DefineCommand(name string, pc uint32) []int {
	sc := st.CurrentScope()
	delete(sc.Declared, name)
	if entry, ok := sc.Namespace.Entries[name]; ok && entry.Label != nil {
		return entry.Label.Resolve(pc)
	}
	return nil
}

// DeclareEnumValue registers a compile-time constant in the current
// namespace.
func (st *SymbolTable) DeclareEnumValue(name string, value float64) {
	st.CurrentScope().Namespace.Entries[name] = &Entry{Kind: EntryEnumValue, Number: value}
}

// DeclareNativeQualified registers a native command binding under a
// dotted path (e.g. ["str", "upper"]), keyed by its 64-bit name hash
// (§3 native-command), creating intermediate namespaces under the
// table's root as needed. Host-side registration (the standard
// library) always roots at the table's root namespace rather than the
// lexically current scope, since it runs once before any user source
// is compiled (§4.7 standard library).
func (st *SymbolTable) DeclareNativeQualified(path []string, hash uint64) {
	ns := st.namespaceFor(path)
	ns.Entries[path[len(path)-1]] = &Entry{Kind: EntryNativeCommand, Hash: hash}
}

// DeclareOpcodeQualified is DeclareNativeQualified's counterpart for
// opcode-commands: synthetic built-ins that lower directly to a VM
// instruction (e.g. the arithmetic/comparison group) instead of a
// native call.
func (st *SymbolTable) DeclareOpcodeQualified(path []string, op byte, arity int) {
	ns := st.namespaceFor(path)
	ns.Entries[path[len(path)-1]] = &Entry{Kind: EntryOpcodeCommand, Op: op, Arity: arity}
}

// namespaceFor walks (creating as needed) every namespace segment but
// the last in path, starting from the table's root.
func (st *SymbolTable) namespaceFor(path []string) *Namespace {
	ns := st.root
	for _, seg := range path[:len(path)-1] {
		ns = ns.childOrCreate(seg)
	}
	return ns
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}
