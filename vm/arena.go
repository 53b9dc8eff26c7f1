package vm

// ListHandle identifies a list object living in the VM's arena. Lists
// are reference types: every Value carrying the same handle shares the
// same underlying storage, matching the language's "owned jointly by
// all reachable references" lifecycle rule. OpGetVar never clones.
type ListHandle uint32

type listObj struct {
	items []Value
}

// arena owns every list ever created during a run. It never frees slots
// - a scripting VM's program lifetime is short enough that this is the
// right tradeoff over reference counting or a moving collector.
type arena struct {
	objs []*listObj
}

func (a *arena) alloc(items []Value) ListHandle {
	h := ListHandle(len(a.objs))
	a.objs = append(a.objs, &listObj{items: items})
	return h
}

func (a *arena) get(h ListHandle) *listObj {
	return a.objs[h]
}

// clone makes a fresh arena entry with a copy of items's contents, for
// built-ins that hand back an independent list (e.g. pickle.copy)
// instead of an alias.
func (a *arena) clone(h ListHandle) ListHandle {
	src := a.get(h)
	items := make([]Value, len(src.items))
	copy(items, src.items)
	return a.alloc(items)
}

// cycleGuard tracks (a, b) handle pairs already being compared, so
// structural equality/ordering/pickling on a list that (directly or
// indirectly) contains itself aborts instead of recursing forever
// (§4.6 "cycle safety").
type cycleGuard map[[2]ListHandle]bool

func (g cycleGuard) enter(a, b ListHandle) bool {
	key := [2]ListHandle{a, b}
	if g[key] {
		return false
	}
	g[key] = true
	return true
}
