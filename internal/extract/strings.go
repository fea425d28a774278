package extract

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
	"github.com/dop251/goja/token"

	"build-watcher/internal/diff"
	"build-watcher/internal/engine"
)

// StringTable recovers the localized string table from a webpack chunk.
//
// The chunk is parsed, never executed. Its module array is the second
// element of the first `<x>.push([[ids], [modules...]])` call. Modules
// before skip are ignored; among the rest, the first one whose exported
// object literal has the marker key is the string table. Modules of any
// other shape are not the target and the search moves on.
func StringTable(src []byte, skip int, marker string) (*diff.Table[string], error) {
	prog, err := parser.ParseFile(nil, "", string(src), 0)
	if err != nil {
		return nil, fmt.Errorf("%w: parse script: %v", engine.ErrMalformedAsset, err)
	}

	modules := moduleList(prog)
	if len(modules) == 0 {
		return nil, fmt.Errorf("%w: no webpack module array", engine.ErrExtractionNotFound)
	}
	if skip < 0 {
		skip = 0
	}
	for i := skip; i < len(modules); i++ {
		if t, ok := exportedStrings(exportsOf(modules[i]), marker); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: no module exports %q", engine.ErrExtractionNotFound, marker)
}

func moduleList(prog *ast.Program) []ast.Expression {
	for _, st := range prog.Body {
		es, ok := st.(*ast.ExpressionStatement)
		if !ok {
			continue
		}
		if mods := modulesIn(es.Expression); mods != nil {
			return mods
		}
	}
	return nil
}

func modulesIn(expr ast.Expression) []ast.Expression {
	switch e := expr.(type) {
	case *ast.SequenceExpression:
		for _, x := range e.Sequence {
			if mods := modulesIn(x); mods != nil {
				return mods
			}
		}
	case *ast.UnaryExpression:
		return modulesIn(e.Operand)
	case *ast.CallExpression:
		if !isMember(e.Callee, "", "push") || len(e.ArgumentList) == 0 {
			return nil
		}
		chunk, ok := e.ArgumentList[0].(*ast.ArrayLiteral)
		if !ok || len(chunk.Value) < 2 {
			return nil
		}
		if mods, ok := chunk.Value[1].(*ast.ArrayLiteral); ok {
			return mods.Value
		}
	}
	return nil
}

// exportsOf returns the expression a module function assigns to
// <module>.exports at its top level, or nil. Both function and arrow
// function modules are inspected.
func exportsOf(mod ast.Expression) ast.Expression {
	var (
		params *ast.ParameterList
		body   []ast.Statement
	)
	switch fn := mod.(type) {
	case *ast.FunctionLiteral:
		if fn.Body == nil {
			return nil
		}
		params, body = fn.ParameterList, fn.Body.List
	case *ast.ArrowFunctionLiteral:
		params = fn.ParameterList
		switch b := fn.Body.(type) {
		case *ast.BlockStatement:
			body = b.List
		case *ast.ExpressionBody:
			body = []ast.Statement{&ast.ExpressionStatement{Expression: b.Expression}}
		}
	default:
		return nil
	}
	if params == nil || len(params.List) == 0 {
		return nil
	}
	param, ok := params.List[0].Target.(*ast.Identifier)
	if !ok {
		return nil
	}
	module := param.Name.String()

	for _, st := range body {
		es, ok := st.(*ast.ExpressionStatement)
		if !ok {
			continue
		}
		if v := exportAssignment(es.Expression, module); v != nil {
			return v
		}
	}
	return nil
}

func exportAssignment(expr ast.Expression, module string) ast.Expression {
	switch e := expr.(type) {
	case *ast.SequenceExpression:
		for _, x := range e.Sequence {
			if v := exportAssignment(x, module); v != nil {
				return v
			}
		}
	case *ast.AssignExpression:
		if e.Operator == token.ASSIGN && isMember(e.Left, module, "exports") {
			return e.Right
		}
	}
	return nil
}

// exportedStrings turns an exported value into a string table when it
// carries marker. Object.freeze wrappers and JSON.parse literals are
// unwrapped.
func exportedStrings(v ast.Expression, marker string) (*diff.Table[string], bool) {
	switch e := v.(type) {
	case *ast.ObjectLiteral:
		if !hasKey(e, marker) {
			return nil, false
		}
		return objectStrings(e), true
	case *ast.CallExpression:
		if len(e.ArgumentList) != 1 {
			return nil, false
		}
		switch {
		case isMember(e.Callee, "Object", "freeze"):
			return exportedStrings(e.ArgumentList[0], marker)
		case isMember(e.Callee, "JSON", "parse"):
			lit, ok := e.ArgumentList[0].(*ast.StringLiteral)
			if !ok {
				return nil, false
			}
			return jsonStrings(lit.Value.String(), marker)
		}
	}
	return nil, false
}

func objectStrings(obj *ast.ObjectLiteral) *diff.Table[string] {
	t := diff.NewTable[string]()
	for _, p := range obj.Value {
		kp, ok := p.(*ast.PropertyKeyed)
		if !ok || kp.Computed || kp.Kind != ast.PropertyKindValue {
			continue
		}
		name, ok := keyName(kp.Key)
		if !ok {
			continue
		}
		if s, ok := stringValue(kp.Value); ok {
			t.Set(name, s)
		}
	}
	return t
}

// stringValue accepts string literals and untagged templates without
// substitutions.
func stringValue(v ast.Expression) (string, bool) {
	switch v := v.(type) {
	case *ast.StringLiteral:
		return v.Value.String(), true
	case *ast.TemplateLiteral:
		if v.Tag != nil || len(v.Expressions) != 0 || len(v.Elements) != 1 {
			return "", false
		}
		return v.Elements[0].Parsed.String(), true
	}
	return "", false
}

func jsonStrings(src, marker string) (*diff.Table[string], bool) {
	var all diff.Table[any]
	if err := json.Unmarshal([]byte(src), &all); err != nil || !all.Has(marker) {
		return nil, false
	}
	t := diff.NewTable[string]()
	all.Each(func(k string, v any) {
		if s, ok := v.(string); ok {
			t.Set(k, s)
		}
	})
	return t, true
}

func hasKey(obj *ast.ObjectLiteral, key string) bool {
	for _, p := range obj.Value {
		kp, ok := p.(*ast.PropertyKeyed)
		if !ok || kp.Computed {
			continue
		}
		if name, ok := keyName(kp.Key); ok && name == key {
			return true
		}
	}
	return false
}

func keyName(k ast.Expression) (string, bool) {
	switch k := k.(type) {
	case *ast.StringLiteral:
		return k.Value.String(), true
	case *ast.Identifier:
		return k.Name.String(), true
	case *ast.NumberLiteral:
		return k.Literal, true
	}
	return "", false
}

// isMember reports whether expr is `object.name`. An empty object matches
// any left-hand side.
func isMember(expr ast.Expression, object, name string) bool {
	dot, ok := expr.(*ast.DotExpression)
	if !ok || dot.Identifier.Name.String() != name {
		return false
	}
	if object == "" {
		return true
	}
	id, ok := dot.Left.(*ast.Identifier)
	return ok && id.Name.String() == object
}
