// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package resolver

import (
	"fmt"

	"github.com/probelang/probe-lang/internal/ast"
	"github.com/probelang/probe-lang/internal/item"
)

// Module is a resolved lexical scope: one per crate root and one per `mod`
// declaration, nested the same way internal/item.Item paths nest.
type Module struct {
	Name   string
	Path   item.Item
	Parent *Module

	Types      map[string]Type        // struct/enum/resource/agent declarations
	Functions  map[string]*ast.FnDecl // free functions, keyed by name
	Traits     map[string]*ast.TraitDecl
	Impls      []*ast.ImplDecl
	Aliases    map[string]string // `use` bindings: local name -> "::"-joined path
	Submodules map[string]*Module

	// declOrder retains the module's own declarations (not its submodules')
	// in source order, so Pass 2 can re-walk them to build full types after
	// Pass 1 has made every name in scope resolvable.
	declOrder []ast.Declaration
}

func newModule(name string, parent *Module, path item.Item) *Module {
	return &Module{
		Name: name, Path: path, Parent: parent,
		Types: make(map[string]Type), Functions: make(map[string]*ast.FnDecl),
		Traits: make(map[string]*ast.TraitDecl), Aliases: make(map[string]string),
		Submodules: make(map[string]*Module),
	}
}

// lookupType searches this module, then its ancestors, for a named type —
// `mod`-nested declarations shadow outer ones of the same name.
func (m *Module) lookupType(name string) (Type, bool) {
	for scope := m; scope != nil; scope = scope.Parent {
		if t, ok := scope.Types[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// unresolvedType is used for a type name that could not be found anywhere in
// scope; it behaves as an ordinary copyable value type so that a single
// unresolved name does not cascade into spurious linear-checker errors on
// every binding that mentions it.
type unresolvedType struct{ name string }

func (u *unresolvedType) Kind() Kind         { return KindVoid }
func (u *unresolvedType) IsLinear() bool     { return false }
func (u *unresolvedType) IsCopyable() bool   { return true }
func (u *unresolvedType) String() string     { return u.name }
func (u *unresolvedType) Equals(o Type) bool { return false }

// Resolver walks an internal/ast.Program, builds its Module symbol table,
// resolves every type annotation to a resolver.Type, and enforces linear
// (move-once) discipline on every function, method, and message-handler
// body. Errors are collected rather than aborting, the same recovery
// posture internal/parser uses, so a single bad declaration does not hide
// every other diagnostic in the file.
type Resolver struct {
	errors []error
}

// New returns a fresh Resolver.
func New() *Resolver {
	return &Resolver{}
}

// Resolve runs name, type, and linear resolution over prog and returns the
// root Module plus every error collected along the way.
func Resolve(prog *ast.Program) (*Module, []error) {
	r := New()
	root := newModule("crate", nil, item.Empty())
	r.declareAll(root, prog.Declarations)
	r.buildTypes(root)
	r.checkAllBodies(root)
	return root, r.errors
}

func (r *Resolver) addError(err error) {
	r.errors = append(r.errors, err)
}

func (r *Resolver) errorf(format string, args ...interface{}) {
	r.addError(fmt.Errorf(format, args...))
}

// ---- Pass 1: declare ---------------------------------------------------------

// declareAll registers every top-level declaration's name into mod, without
// yet resolving any type annotation — struct A and struct B may each
// reference the other, so names must all exist before Pass 2 builds types.
func (r *Resolver) declareAll(mod *Module, decls []ast.Declaration) {
	mod.declOrder = append(mod.declOrder, decls...)
	for _, d := range decls {
		r.declareOne(mod, d)
	}
}

func (r *Resolver) declareOne(mod *Module, d ast.Declaration) {
	switch decl := d.(type) {
	case *ast.FnDecl:
		if _, dup := mod.Functions[decl.Name]; dup {
			r.errorf("duplicate function %q in module %q", decl.Name, mod.Name)
			return
		}
		mod.Functions[decl.Name] = decl

	case *ast.StructDecl:
		r.reserveTypeName(mod, decl.Name)
	case *ast.EnumDecl:
		r.reserveTypeName(mod, decl.Name)
	case *ast.ResourceDecl:
		r.reserveTypeName(mod, decl.Name)
	case *ast.AgentDecl:
		r.reserveTypeName(mod, decl.Name)

	case *ast.TraitDecl:
		if _, dup := mod.Traits[decl.Name]; dup {
			r.errorf("duplicate trait %q in module %q", decl.Name, mod.Name)
			return
		}
		mod.Traits[decl.Name] = decl

	case *ast.ImplDecl:
		mod.Impls = append(mod.Impls, decl)

	case *ast.TypeDecl:
		r.reserveTypeName(mod, decl.Name)

	case *ast.UseDecl:
		alias := decl.Alias
		if alias == "" && len(decl.Path) > 0 {
			alias = decl.Path[len(decl.Path)-1]
		}
		if alias != "" {
			mod.Aliases[alias] = joinPath(decl.Path)
		}

	case *ast.ModDecl:
		child, exists := mod.Submodules[decl.Name]
		if !exists {
			childItem, err := pushModPath(mod.Path, decl.Name)
			if err != nil {
				r.errorf("module %q: %v", decl.Name, err)
				childItem = mod.Path
			}
			child = newModule(decl.Name, mod, childItem)
			mod.Submodules[decl.Name] = child
		}
		if decl.Declarations != nil {
			r.declareAll(child, decl.Declarations)
		}

	default:
		r.errorf("unsupported top-level declaration %T", d)
	}
}

// reserveTypeName registers name as present but unresolved, a placeholder
// Pass 2 overwrites once the declaration's fields can be built. This lets
// mutually-recursive struct/enum/resource declarations resolve each other.
func (r *Resolver) reserveTypeName(mod *Module, name string) {
	if _, dup := mod.Types[name]; dup {
		r.errorf("duplicate type %q in module %q", name, mod.Name)
		return
	}
	mod.Types[name] = &unresolvedType{name: name}
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "::"
		}
		out += p
	}
	return out
}

func pushModPath(parent item.Item, name string) (item.Item, error) {
	child := parent
	err := child.Push(item.Str(name))
	return child, err
}

// ---- Pass 2: build types ------------------------------------------------------

// buildTypes walks every module's declarations again, now constructing the
// real resolver.Type for each struct/enum/resource/agent — name lookups
// against mod.Types now succeed even for forward/mutual references, since
// Pass 1 already populated every name (as unresolvedType placeholders).
func (r *Resolver) buildTypes(mod *Module) {
	for _, d := range mod.declOrder {
		switch decl := d.(type) {
		case *ast.StructDecl:
			mod.Types[decl.Name] = r.buildStructType(mod, decl)
		case *ast.EnumDecl:
			mod.Types[decl.Name] = r.buildEnumType(mod, decl)
		case *ast.ResourceDecl:
			mod.Types[decl.Name] = r.buildResourceType(mod, decl)
		case *ast.AgentDecl:
			mod.Types[decl.Name] = r.buildAgentType(mod, decl)
		}
	}
	for _, child := range mod.Submodules {
		r.buildTypes(child)
	}
}

func (r *Resolver) buildStructType(mod *Module, decl *ast.StructDecl) Type {
	if decl.TupleTypes != nil {
		fields := make([]Field, len(decl.TupleTypes))
		for i, te := range decl.TupleTypes {
			fields[i] = Field{Type: r.resolveTypeExpr(mod, te)}
		}
		return &StructType{Name: decl.Name, Fields: fields}
	}
	fields := make([]Field, len(decl.Fields))
	for i, f := range decl.Fields {
		fields[i] = Field{Name: f.Name, Type: r.resolveTypeExpr(mod, f.Type)}
	}
	return &StructType{Name: decl.Name, Fields: fields}
}

func (r *Resolver) buildEnumType(mod *Module, decl *ast.EnumDecl) Type {
	variants := make([]Variant, len(decl.Variants))
	for i, v := range decl.Variants {
		fields := make([]Type, len(v.Fields))
		for j, te := range v.Fields {
			fields[j] = r.resolveTypeExpr(mod, te)
		}
		variants[i] = Variant{Name: v.Name, Fields: fields}
	}
	return &EnumType{Name: decl.Name, Variants: variants}
}

func (r *Resolver) buildResourceType(mod *Module, decl *ast.ResourceDecl) Type {
	fields := make([]Field, len(decl.Fields))
	for i, f := range decl.Fields {
		fields[i] = Field{Name: f.Name, Type: r.resolveTypeExpr(mod, f.Type)}
	}
	return &ResourceType{Name: decl.Name, Fields: fields}
}

func (r *Resolver) buildAgentType(mod *Module, decl *ast.AgentDecl) Type {
	msgs := make(map[string]*FnType, len(decl.Handlers))
	for _, h := range decl.Handlers {
		params := make([]Type, 0, len(h.Params))
		for _, p := range h.Params {
			if p.Name == "self" {
				continue
			}
			params = append(params, r.resolveTypeExpr(mod, p.Type))
		}
		msgs[h.Name] = &FnType{Params: params}
	}
	return &AgentType{Name: decl.Name, MsgTypes: msgs}
}

// resolveTypeExpr translates an ast.TypeExpr into a resolver.Type, looking
// named types up against mod's scope chain and falling back to an
// unresolvedType (plus a recorded error) when a name can't be found.
func (r *Resolver) resolveTypeExpr(mod *Module, te ast.TypeExpr) Type {
	if te == nil {
		return Void
	}
	switch t := te.(type) {
	case *ast.NamedType:
		if builtin, ok := builtinTypes[t.Name]; ok {
			return builtin
		}
		if resolved, ok := mod.lookupType(t.Name); ok {
			return resolved
		}
		r.errorf("undefined type %q", t.Name)
		return &unresolvedType{name: t.Name}

	case *ast.PathType:
		name := t.Segments[len(t.Segments)-1]
		if resolved, ok := mod.lookupType(name); ok {
			return resolved
		}
		return &unresolvedType{name: joinPath(t.Segments)}

	case *ast.ArrayType:
		size := constIntOrZero(t.Size)
		return &ArrayType{Elem: r.resolveTypeExpr(mod, t.Elem), Len: size}

	case *ast.SliceType:
		return &SliceType{Elem: r.resolveTypeExpr(mod, t.Elem)}

	case *ast.RefType:
		return &RefType{Inner: r.resolveTypeExpr(mod, t.Elem), Mutable: false}

	case *ast.MutRefType:
		return &RefType{Inner: r.resolveTypeExpr(mod, t.Elem), Mutable: true}

	case *ast.FnType:
		params := make([]Type, len(t.ParamTypes))
		for i, p := range t.ParamTypes {
			params[i] = r.resolveTypeExpr(mod, p)
		}
		return &FnType{Params: params, Return: r.resolveTypeExpr(mod, t.ReturnType)}

	case *ast.GeneratorType:
		return &GeneratorType{Yielded: r.resolveTypeExpr(mod, t.Yielded)}

	case *ast.StreamType:
		return &StreamType{Item: r.resolveTypeExpr(mod, t.Item)}

	case *ast.FutureType:
		return &FutureType{Result: r.resolveTypeExpr(mod, t.Result)}

	default:
		r.errorf("unsupported type expression %T", te)
		return &unresolvedType{name: te.String()}
	}
}

func constIntOrZero(e ast.Expression) int {
	lit, ok := e.(*ast.IntLiteral)
	if !ok {
		return 0
	}
	return int(lit.Value)
}
