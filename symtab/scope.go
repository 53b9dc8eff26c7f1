package symtab

// Scope is a stack frame within the symbol table (not to be confused
// with a VM call frame): it owns a namespace, tracks local-command
// names that have been declared but not yet defined, and carries the
// break/continue targets visible at this nesting level (§3 Scope).
type Scope struct {
	Frame         *Frame
	Namespace     *Namespace
	Declared      map[string]bool
	BreakLabel    *Label
	ContinueLabel *Label
}
