// Package symtab implements the compiler's symbol table: a frame stack, a
// scope stack, and a namespace tree (§4.3). It tracks variable slots,
// pending labels, and name resolution across nested scopes, but never
// touches the opcode buffer itself - the code generator asks it for
// slots and labels and does the emitting.
package symtab

// NeedMoreInputPC is the sentinel PC written by Resolve in REPL mode
// when a label's target cannot yet be determined. The VM/REPL driver
// treats any jump landing on this value as "need more input" (§4.4).
const NeedMoreInputPC uint32 = 0xFFFFFFFF

// Label is a named branch target. Before it is declared, jumps and calls
// that reference it accumulate pending rewrite sites; once resolved, all
// accumulated sites are reported back to the caller for patching, and
// any later site is reported as immediately patchable (§3 Label
// invariant).
type Label struct {
	Name     string
	resolved bool
	pc       uint32
	sites    []int
}

// NewLabel creates an unresolved label.
func NewLabel(name string) *Label {
	return &Label{Name: name}
}

func (l *Label) Resolved() bool { return l.resolved }

func (l *Label) PC() uint32 { return l.pc }

// AddSite records a patch site (a byte offset into the instruction
// buffer whose 4-byte operand must be rewritten to this label's PC). If
// the label is already resolved, it returns the PC to patch immediately
// and ok=true; otherwise the site is queued and ok=false.
func (l *Label) AddSite(site int) (pc uint32, ok bool) {
	if l.resolved {
		return l.pc, true
	}
	l.sites = append(l.sites, site)
	return 0, false
}

// Resolve assigns pc as the label's final offset and returns every
// pending site accumulated so far, which the caller must now patch.
// Resolving an already-resolved label simply moves it to the new pc and
// returns no sites - the REPL's batch-by-batch compile relies on this to
// let a label's real location replace a prior need-more-input marker.
func (l *Label) Resolve(pc uint32) []int {
	l.resolved = true
	l.pc = pc
	sites := l.sites
	l.sites = nil
	return sites
}
