package stdlib

import (
	"context"
	"sort"
	"strings"

	"sini/compiler"
	"sini/vm"
)

func listArg(name string, rt *vm.VM, args []vm.Value, i int) ([]vm.Value, error) {
	if i >= len(args) {
		return nil, vm.AbortError{Message: name + "() expects a list argument"}
	}
	items, ok := rt.ListItems(args[i])
	if !ok {
		return nil, vm.AbortError{Message: name + "() expects a list, got " + args[i].TypeName()}
	}
	return items, nil
}

// formatCycleSafe mirrors rt.Format for a single value but refuses to
// follow a list handle it has already visited, aborting instead of
// recursing forever. list.join needs this explicitly (a joined list
// can itself contain a cyclic list element); the scalar formatter
// elsewhere in this package never walks into nested lists so it
// doesn't need the same guard.
func formatCycleSafe(rt *vm.VM, v vm.Value, seen map[vm.ListHandle]bool) (string, error) {
	if v.Kind != vm.KindList {
		return rt.Format(v), nil
	}
	if seen[v.List] {
		return "", vm.AbortError{Message: "list.join: circular list"}
	}
	seen[v.List] = true
	items, _ := rt.ListItems(v)
	parts := make([]string, len(items))
	for i, it := range items {
		s, err := formatCycleSafe(rt, it, seen)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	delete(seen, v.List)
	return "[" + strings.Join(parts, ", ") + "]", nil
}

func registerList(c *compiler.Compiler, v *vm.VM) {
	declareNative(c, v, "list.new", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		n := 0
		if len(args) >= 1 {
			x, err := numArg("list.new", args, 0)
			if err != nil {
				return vm.Nil, err
			}
			n = int(x)
		}
		fill := vm.Nil
		if len(args) >= 2 {
			fill = args[1]
		}
		if n < 0 {
			n = 0
		}
		out := make([]vm.Value, n)
		for i := range out {
			out[i] = fill
		}
		return rt.NewList(out), nil
	})

	declareNative(c, v, "list.push", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("list.push", args, 2); err != nil {
			return vm.Nil, err
		}
		items, err := listArg("list.push", rt, args, 0)
		if err != nil {
			return vm.Nil, err
		}
		rt.SetListItems(args[0], append(items, args[1]))
		return args[0], nil
	})

	declareNative(c, v, "list.unshift", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("list.unshift", args, 2); err != nil {
			return vm.Nil, err
		}
		items, err := listArg("list.unshift", rt, args, 0)
		if err != nil {
			return vm.Nil, err
		}
		out := append([]vm.Value{args[1]}, items...)
		rt.SetListItems(args[0], out)
		return args[0], nil
	})

	declareNative(c, v, "list.pop", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		items, err := listArg("list.pop", rt, args, 0)
		if err != nil {
			return vm.Nil, err
		}
		if len(items) == 0 {
			return vm.Nil, nil
		}
		last := items[len(items)-1]
		rt.SetListItems(args[0], items[:len(items)-1])
		return last, nil
	})

	declareNative(c, v, "list.shift", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		items, err := listArg("list.shift", rt, args, 0)
		if err != nil {
			return vm.Nil, err
		}
		if len(items) == 0 {
			return vm.Nil, nil
		}
		first := items[0]
		rt.SetListItems(args[0], items[1:])
		return first, nil
	})

	declareNative(c, v, "list.append", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("list.append", args, 2); err != nil {
			return vm.Nil, err
		}
		items, err := listArg("list.append", rt, args, 0)
		if err != nil {
			return vm.Nil, err
		}
		other, err := listArg("list.append", rt, args, 1)
		if err != nil {
			return vm.Nil, err
		}
		rt.SetListItems(args[0], append(items, other...))
		return args[0], nil
	})

	declareNative(c, v, "list.prepend", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("list.prepend", args, 2); err != nil {
			return vm.Nil, err
		}
		items, err := listArg("list.prepend", rt, args, 0)
		if err != nil {
			return vm.Nil, err
		}
		other, err := listArg("list.prepend", rt, args, 1)
		if err != nil {
			return vm.Nil, err
		}
		out := append(append([]vm.Value{}, other...), items...)
		rt.SetListItems(args[0], out)
		return args[0], nil
	})

	declareNative(c, v, "list.find", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return listFind(rt, args, false)
	})
	declareNative(c, v, "list.rfind", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return listFind(rt, args, true)
	})

	declareNative(c, v, "list.join", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		items, err := listArg("list.join", rt, args, 0)
		if err != nil {
			return vm.Nil, err
		}
		sep := ""
		if len(args) >= 2 {
			sep, err = strArg("list.join", args, 1)
			if err != nil {
				return vm.Nil, err
			}
		}
		parts := make([]string, len(items))
		for i, it := range items {
			s, err := formatCycleSafe(rt, it, map[vm.ListHandle]bool{})
			if err != nil {
				return vm.Nil, err
			}
			parts[i] = s
		}
		return vm.String(strings.Join(parts, sep)), nil
	})

	declareNative(c, v, "list.rev", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		items, err := listArg("list.rev", rt, args, 0)
		if err != nil {
			return vm.Nil, err
		}
		out := make([]vm.Value, len(items))
		for i, it := range items {
			out[len(items)-1-i] = it
		}
		return rt.NewList(out), nil
	})

	declareNative(c, v, "list.str", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		if err := wantArgs("list.str", args, 1); err != nil {
			return vm.Nil, err
		}
		s, err := formatCycleSafe(rt, args[0], map[vm.ListHandle]bool{})
		if err != nil {
			return vm.Nil, err
		}
		return vm.String(s), nil
	})

	declareNative(c, v, "list.sort", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return listSort(rt, args, false)
	})
	declareNative(c, v, "list.rsort", func(rt *vm.VM, ctx context.Context, args []vm.Value) (vm.Value, error) {
		return listSort(rt, args, true)
	})
}

func listFind(rt *vm.VM, args []vm.Value, last bool) (vm.Value, error) {
	items, err := listArg("list.find", rt, args, 0)
	if err != nil {
		return vm.Nil, err
	}
	if len(args) < 2 {
		return vm.Nil, vm.AbortError{Message: "list.find() expects a value to search for"}
	}
	needle := args[1]
	found := -1
	for i, it := range items {
		eq, err := rt.Equal(it, needle)
		if err != nil {
			return vm.Nil, err
		}
		if eq {
			found = i
			if !last {
				break
			}
		}
	}
	return vm.Number(float64(found)), nil
}

// listSort orders a list's elements in place. Ordering is only defined
// between two numbers or two strings (not across kinds, and not for
// nested lists) - a comparison outside that domain fails the call
// rather than looping, so a self-referential list aborts instead of
// hanging regardless of which branch it takes.
func listSort(rt *vm.VM, args []vm.Value, descending bool) (vm.Value, error) {
	items, err := listArg("list.sort", rt, args, 0)
	if err != nil {
		return vm.Nil, err
	}
	out := append([]vm.Value(nil), items...)
	var sortErr error
	less := func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		lt, err := valueLess(out[i], out[j])
		if err != nil {
			sortErr = err
			return false
		}
		if descending {
			return !lt && !valueEq(out[i], out[j])
		}
		return lt
	}
	sort.SliceStable(out, less)
	if sortErr != nil {
		return vm.Nil, sortErr
	}
	rt.SetListItems(args[0], out)
	return args[0], nil
}

func valueLess(a, b vm.Value) (bool, error) {
	if a.Kind != b.Kind || (a.Kind != vm.KindNumber && a.Kind != vm.KindString) {
		return false, vm.AbortError{Message: "list.sort: elements must be all numbers or all strings"}
	}
	if a.Kind == vm.KindNumber {
		return a.Num < b.Num, nil
	}
	return a.Str < b.Str, nil
}

func valueEq(a, b vm.Value) bool {
	if a.Kind == vm.KindNumber {
		return a.Num == b.Num
	}
	return a.Str == b.Str
}
