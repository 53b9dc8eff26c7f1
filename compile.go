package main

import (
	"fmt"

	"sini/compiler"
	"sini/lexer"
	"sini/parser"
	"sini/program"
	"sini/stdlib"
	"sini/vm"
)

// newRuntime builds a Compiler and VM with the standard library wired
// in, the pairing every non-REPL subcommand needs before it can turn
// source into a runnable program. The VM starts over an empty program;
// callers compile their real source and call vm.SetProgram once it
// exists, the same construction order stdlib's own tests use to work
// around the compiler needing a VM to register natives on before the
// real program is known.
func newRuntime(resolver compiler.Resolver, host stdlib.Host) (*compiler.Compiler, *vm.VM) {
	c := compiler.New(false, resolver)
	v := vm.New(&program.Program{})
	stdlib.Register(c, v, host, stdlib.NewPRNG(0))
	return c, v
}

// compileFile lexes, parses, and compiles src in full (not REPL mode),
// then packages the result through the same encode/decode/validate path
// a loaded .sic file would go through, so a freshly compiled program and
// one read back off disk are handled identically by the VM. It returns
// both the decoded Program (ready for a VM) and the encoded bytes
// (ready to write to a .sic file), since run only needs the former and
// build needs both.
func compileFile(c *compiler.Compiler, src string, debug bool) (*program.Program, []byte, error) {
	toks, err := lexer.New(src, 0).Scan()
	if err != nil {
		return nil, nil, fmt.Errorf("lexing error: %w", err)
	}
	p := parser.New(toks, false)
	stmts, err := p.Parse()
	if err != nil {
		return nil, nil, fmt.Errorf("parse error: %w", err)
	}
	res, err := c.Compile(stmts)
	if err != nil {
		return nil, nil, fmt.Errorf("compile error: %w", err)
	}
	encoded := program.Encode(program.Result(*res), debug)
	decoded, err := program.Decode(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("encode/decode error: %w", err)
	}
	if err := program.Validate(decoded); err != nil {
		return nil, nil, fmt.Errorf("validation error: %w", err)
	}
	return decoded, encoded, nil
}
