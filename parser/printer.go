package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"sini/ast"
)

const (
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// dumper implements ast.ExprVisitor and ast.StmtVisitor, building a
// JSON-friendly representation (maps and slices) of a parsed program.
// The CLI's `dump` subcommand does not use it; it disassembles compiled
// programs instead.
type dumper struct{}

func exprNode(expr ast.Expression) any {
	if expr == nil {
		return nil
	}
	return expr.Accept(dumper{})
}

func (d dumper) VisitNil(e *ast.NilExpr) any { return map[string]any{"type": "nil"} }

func (d dumper) VisitNum(e *ast.NumExpr) any {
	return map[string]any{"type": "num", "value": e.Value}
}

func (d dumper) VisitStr(e *ast.StrExpr) any {
	return map[string]any{"type": "str", "value": e.Value}
}

func (d dumper) VisitList(e *ast.ListExpr) any {
	return map[string]any{"type": "list", "elements": exprNode(e.Elements)}
}

func (d dumper) VisitNames(e *ast.NamesExpr) any {
	return map[string]any{"type": "names", "path": e.Path}
}

func (d dumper) VisitParen(e *ast.ParenExpr) any {
	return map[string]any{"type": "paren", "inner": exprNode(e.Inner)}
}

func (d dumper) VisitGroup(e *ast.GroupExpr) any {
	items := make([]any, 0, len(e.Items))
	for _, item := range e.Items {
		items = append(items, exprNode(item))
	}
	return map[string]any{"type": "group", "items": items}
}

func (d dumper) VisitCat(e *ast.CatExpr) any {
	items := make([]any, 0, len(e.Items))
	for _, item := range e.Items {
		items = append(items, exprNode(item))
	}
	return map[string]any{"type": "cat", "items": items}
}

func (d dumper) VisitPrefix(e *ast.PrefixExpr) any {
	return map[string]any{"type": "prefix", "op": string(e.Op), "operand": exprNode(e.Operand)}
}

func (d dumper) VisitInfix(e *ast.InfixExpr) any {
	return map[string]any{
		"type":  "infix",
		"op":    string(e.Op),
		"left":  exprNode(e.Left),
		"right": exprNode(e.Right),
	}
}

func (d dumper) VisitCall(e *ast.CallExpr) any {
	params := make([]any, 0, len(e.Params))
	for _, p := range e.Params {
		params = append(params, exprNode(p))
	}
	return map[string]any{"type": "call", "cmd": e.Cmd, "params": params}
}

func (d dumper) VisitIndex(e *ast.IndexExpr) any {
	return map[string]any{"type": "index", "obj": exprNode(e.Obj), "key": exprNode(e.Key)}
}

func (d dumper) VisitSlice(e *ast.SliceExpr) any {
	return map[string]any{
		"type":  "slice",
		"obj":   exprNode(e.Obj),
		"start": exprNode(e.Start),
		"len":   exprNode(e.Len),
	}
}

func (d dumper) VisitBreak(s *ast.BreakStmt) any { return map[string]any{"type": "break"} }

func (d dumper) VisitContinue(s *ast.ContinueStmt) any { return map[string]any{"type": "continue"} }

func (d dumper) VisitDeclare(s *ast.DeclareStmt) any {
	return map[string]any{"type": "declare", "name": s.Name}
}

func (d dumper) VisitDefBegin(s *ast.DefBeginStmt) any {
	return map[string]any{"type": "def_begin", "name": s.Name, "params": s.Params, "rest": s.Rest}
}

func (d dumper) VisitDefEnd(s *ast.DefEndStmt) any { return map[string]any{"type": "def_end"} }

func (d dumper) VisitDoWhileBegin(s *ast.DoWhileBeginStmt) any {
	return map[string]any{"type": "do_while_begin"}
}

func (d dumper) VisitDoWhileMid(s *ast.DoWhileMidStmt) any {
	return map[string]any{"type": "do_while_mid", "cond": exprNode(s.Cond)}
}

func (d dumper) VisitDoWhileEnd(s *ast.DoWhileEndStmt) any {
	return map[string]any{"type": "do_while_end"}
}

func (d dumper) VisitEnum(s *ast.EnumStmt) any {
	members := make([]any, 0, len(s.Members))
	for _, m := range s.Members {
		members = append(members, map[string]any{"name": m.Name, "value": exprNode(m.Value)})
	}
	return map[string]any{"type": "enum", "members": members}
}

func (d dumper) VisitForBegin(s *ast.ForBeginStmt) any {
	return map[string]any{
		"type":     "for_begin",
		"name":     s.Name,
		"index":    s.Index,
		"iterable": exprNode(s.Iterable),
	}
}

func (d dumper) VisitForEnd(s *ast.ForEndStmt) any { return map[string]any{"type": "for_end"} }

func (d dumper) VisitLoopBegin(s *ast.LoopBeginStmt) any {
	return map[string]any{"type": "loop_begin"}
}

func (d dumper) VisitLoopEnd(s *ast.LoopEndStmt) any { return map[string]any{"type": "loop_end"} }

func (d dumper) VisitGoto(s *ast.GotoStmt) any {
	return map[string]any{"type": "goto", "name": s.Name}
}

func (d dumper) VisitIfBegin(s *ast.IfBeginStmt) any {
	return map[string]any{"type": "if_begin", "cond": exprNode(s.Cond)}
}

func (d dumper) VisitIfCond(s *ast.IfCondStmt) any {
	return map[string]any{"type": "if_cond", "cond": exprNode(s.Cond)}
}

func (d dumper) VisitIfElse(s *ast.IfElseStmt) any { return map[string]any{"type": "if_else"} }

func (d dumper) VisitIfEnd(s *ast.IfEndStmt) any { return map[string]any{"type": "if_end"} }

func (d dumper) VisitInclude(s *ast.IncludeStmt) any {
	return map[string]any{"type": "include", "path": s.Path}
}

func (d dumper) VisitNamespaceBegin(s *ast.NamespaceBeginStmt) any {
	return map[string]any{"type": "namespace_begin", "name": s.Name}
}

func (d dumper) VisitNamespaceEnd(s *ast.NamespaceEndStmt) any {
	return map[string]any{"type": "namespace_end"}
}

func (d dumper) VisitReturn(s *ast.ReturnStmt) any {
	return map[string]any{"type": "return", "value": exprNode(s.Value)}
}

func (d dumper) VisitUsing(s *ast.UsingStmt) any {
	return map[string]any{"type": "using", "path": s.Path}
}

func (d dumper) VisitVar(s *ast.VarStmt) any {
	return map[string]any{
		"type":        "var",
		"names":       s.Names,
		"rest":        s.Rest,
		"initializer": exprNode(s.Initializer),
	}
}

func (d dumper) VisitEval(s *ast.EvalStmt) any {
	return map[string]any{"type": "eval", "expr": exprNode(s.Expr)}
}

func (d dumper) VisitLabel(s *ast.LabelStmt) any {
	return map[string]any{"type": "label", "name": s.Name}
}

// DumpJSON renders a parsed statement sequence as prettified JSON.
func DumpJSON(statements []ast.Statement) (string, error) {
	d := dumper{}
	out := make([]any, 0, len(statements))
	for _, s := range statements {
		out = append(out, s.Accept(d))
	}
	bytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// PrintDump writes the colorized JSON dump to stdout.
func PrintDump(statements []ast.Statement) error {
	s, err := DumpJSON(statements)
	if err != nil {
		return err
	}
	fmt.Println(colorYellow + "----- AST JSON -----")
	fmt.Println(colorYellow + s)
	fmt.Println(colorYellow + "-----" + colorReset)
	return nil
}

// WriteDumpToFile writes the JSON dump to path.
func WriteDumpToFile(statements []ast.Statement, path string) error {
	s, err := DumpJSON(statements)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating AST dump file: %s", err.Error())
	}
	defer f.Close()
	if _, err := f.Write([]byte(s)); err != nil {
		return fmt.Errorf("error writing AST dump: %s", err.Error())
	}
	return nil
}
