// Package stdlib implements the standard library of built-in commands
// (§4.7): numeric, integer, random, string, utf8, struct, list, pickle,
// and the ungrouped universal commands. Register wires every group's
// native callbacks into a VM and declares their names in a Compiler's
// symbol table, both rooted at compile time before any user source is
// read, the same way any embedding interpreter pre-populates its
// global environment before running a program.
package stdlib

import (
	"sini/compiler"
	"sini/vm"
)

// declareNative is the one chokepoint every group in this package goes
// through: it picks the command's 64-bit name hash, makes it known to
// the compiler (so calls to it compile to OpCallNative and so
// isnative() can see it), and installs the Go callback the VM runs for
// that hash. Built-ins are always "installed" from the compiler's point
// of view, since the standard library is wired in before any user
// source is compiled.
func declareNative(c *compiler.Compiler, v *vm.VM, name string, fn vm.NativeFunc) {
	hash := NativeHash(name)
	c.DeclareNative(name, hash, true)
	v.RegisterNative(hash, fn)
}

// RegisterAutoNative installs fn as the callback for name's auto-native
// hash (§6): the runtime half of a forward-referenced host command that
// a script already called before anything declared it at compile time
// (see Compiler.SetAutoNativeHashFunc, wired by Register below).
func RegisterAutoNative(v *vm.VM, name string, fn vm.NativeFunc) {
	v.RegisterNative(AutoNativeHash(name), fn)
}

// Register installs the full standard library into c and v. host may
// be nil (say/warn/ask are simply left uninstalled, matching §6's
// "three optional async callbacks"); rng is the shared generator the
// rand.* group mutates, pass NewPRNG(0) for a default-seeded one. It
// also wires str.hash's literal-folding path (compileStrHash) to the
// same Murmur3 implementation the runtime str.hash native uses, so a
// constant-argument call and a runtime call agree bit for bit, and
// wires auto-native forward references (§6) so a call to a command
// name with no declared entry compiles against AutoNativeHash instead
// of failing, in case the host installs a matching callback later.
func Register(c *compiler.Compiler, v *vm.VM, host Host, rng *PRNG) {
	c.SetHashFunc(StrHash)
	c.SetAutoNativeHashFunc(AutoNativeHash)

	registerNumeric(c, v)
	registerInteger(c, v)
	registerRand(c, v, rng)
	registerString(c, v)
	registerUTF8(c, v)
	registerStruct(c, v)
	registerList(c, v)
	registerPickle(c, v)
	registerUniversal(c, v, host)
}
