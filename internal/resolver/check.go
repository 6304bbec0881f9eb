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

import "github.com/probelang/probe-lang/internal/ast"

// ---- Pass 3: linear checking --------------------------------------------------

// checkAllBodies runs the linear checker over every function, trait-impl
// method, and agent message handler reachable from mod, recursing into
// submodules.
func (r *Resolver) checkAllBodies(mod *Module) {
	for _, fn := range mod.Functions {
		r.checkFn(mod, fn.Name, fn.Params, fn.Body)
	}
	for _, impl := range mod.Impls {
		for i := range impl.Methods {
			m := &impl.Methods[i]
			r.checkFn(mod, impl.TypeName+"::"+m.Name, m.Params, m.Body)
		}
	}
	for _, d := range mod.declOrder {
		if agent, ok := d.(*ast.AgentDecl); ok {
			for i := range agent.Handlers {
				h := &agent.Handlers[i]
				r.checkFn(mod, agent.Name+"::"+h.Name, h.Params, h.Body)
			}
		}
	}
	for _, child := range mod.Submodules {
		r.checkAllBodies(child)
	}
}

func (r *Resolver) checkFn(mod *Module, name string, params []ast.Param, body *ast.BlockExpr) {
	if body == nil {
		return
	}
	lc := NewLinearChecker(name)
	for _, p := range params {
		if p.Name == "self" {
			continue
		}
		lc.Bind(p.Name, r.resolveTypeExpr(mod, p.Type))
	}
	r.checkBlock(mod, lc, body)
	for _, err := range lc.CheckAllConsumed() {
		e := err
		r.addError(&e)
	}
}

func (r *Resolver) checkBlock(mod *Module, lc *LinearChecker, blk *ast.BlockExpr) {
	if blk == nil {
		return
	}
	for _, s := range blk.Statements {
		r.checkStmt(mod, lc, s)
	}
	if blk.Tail != nil {
		r.checkExpr(mod, lc, blk.Tail)
	}
}

func (r *Resolver) checkStmt(mod *Module, lc *LinearChecker, s ast.Statement) {
	switch st := s.(type) {
	case *ast.LetStmt:
		if st.Value != nil {
			r.checkExpr(mod, lc, st.Value)
		}
		typ := r.resolveTypeExpr(mod, st.Type)
		if st.Type == nil {
			typ = r.inferType(mod, lc, st.Value)
		}
		lc.Bind(st.Name.Value, typ)

	case *ast.AssignStmt:
		r.checkExpr(mod, lc, st.Target)
		r.checkExpr(mod, lc, st.Value)

	case *ast.ReturnStmt:
		if st.Value != nil {
			r.checkExpr(mod, lc, st.Value)
		}

	case *ast.ExprStmt:
		r.checkExpr(mod, lc, st.Expression)

	case *ast.ForStmt:
		r.checkExpr(mod, lc, st.Iterable)
		lc.Bind(st.Binding.Value, Void)
		r.checkBlock(mod, lc, st.Body)

	case *ast.WhileStmt:
		r.checkExpr(mod, lc, st.Condition)
		r.checkBlock(mod, lc, st.Body)

	case *ast.LoopStmt:
		r.checkBlock(mod, lc, st.Body)

	case *ast.BreakStmt, *ast.ContinueStmt:
		// no operands

	case *ast.DropStmt:
		if err := lc.Drop(st.Value.Value); err != nil {
			r.addError(err)
		}

	case *ast.EmitStmt:
		for _, k := range st.Order {
			r.checkExpr(mod, lc, st.Fields[k])
		}

	case *ast.RequireStmt:
		r.checkExpr(mod, lc, st.Condition)
		if st.Message != nil {
			r.checkExpr(mod, lc, st.Message)
		}

	case *ast.AssertStmt:
		r.checkExpr(mod, lc, st.Condition)
		if st.Message != nil {
			r.checkExpr(mod, lc, st.Message)
		}

	case *ast.TxStmt:
		r.checkBlock(mod, lc, st.Body)

	default:
		r.errorf("unsupported statement %T", s)
	}
}

func (r *Resolver) checkExpr(mod *Module, lc *LinearChecker, e ast.Expression) {
	if e == nil {
		return
	}
	switch ex := e.(type) {
	case *ast.Ident, *ast.IntLiteral, *ast.FloatLiteral, *ast.StringLiteral,
		*ast.BoolLiteral, *ast.BytesLiteral, *ast.NilLiteral, *ast.AddressLiteral,
		*ast.RecvExpr:
		// leaves; a bare Ident reference borrows rather than consumes

	case *ast.PrefixExpr:
		r.checkExpr(mod, lc, ex.Right)

	case *ast.InfixExpr:
		r.checkExpr(mod, lc, ex.Left)
		r.checkExpr(mod, lc, ex.Right)

	case *ast.IndexExpr:
		r.checkExpr(mod, lc, ex.Left)
		r.checkExpr(mod, lc, ex.Index)

	case *ast.FieldExpr:
		r.checkExpr(mod, lc, ex.Object)

	case *ast.TupleIndexExpr:
		r.checkExpr(mod, lc, ex.Object)

	case *ast.CallExpr:
		r.checkExpr(mod, lc, ex.Function)
		for _, a := range ex.Arguments {
			r.checkExpr(mod, lc, a)
		}

	case *ast.MethodCallExpr:
		r.checkExpr(mod, lc, ex.Receiver)
		for _, a := range ex.Arguments {
			r.checkExpr(mod, lc, a)
		}

	case *ast.BlockExpr:
		r.checkBlock(mod, lc, ex)

	case *ast.IfExpr:
		r.checkExpr(mod, lc, ex.Condition)
		r.checkBlock(mod, lc, ex.Consequence)
		if ex.Alternative != nil {
			r.checkExpr(mod, lc, ex.Alternative)
		}

	case *ast.MatchExpr:
		r.checkExpr(mod, lc, ex.Subject)
		for _, arm := range ex.Arms {
			if arm.Guard != nil {
				r.checkExpr(mod, lc, arm.Guard)
			}
			r.checkExpr(mod, lc, arm.Body)
		}

	case *ast.RangeExpr:
		if ex.Start != nil {
			r.checkExpr(mod, lc, ex.Start)
		}
		if ex.End != nil {
			r.checkExpr(mod, lc, ex.End)
		}

	case *ast.ArrayExpr:
		for _, el := range ex.Elements {
			r.checkExpr(mod, lc, el)
		}

	case *ast.TupleExpr:
		for _, el := range ex.Elements {
			r.checkExpr(mod, lc, el)
		}

	case *ast.StructLiteralExpr:
		for _, k := range ex.Order {
			r.checkExpr(mod, lc, ex.Fields[k])
		}

	case *ast.ClosureExpr:
		r.checkExpr(mod, lc, ex.Body)

	case *ast.MoveExpr:
		if id, ok := ex.Value.(*ast.Ident); ok {
			if err := lc.Use(id.Value); err != nil {
				r.addError(err)
			}
			return
		}
		r.checkExpr(mod, lc, ex.Value)

	case *ast.CopyExpr:
		if id, ok := ex.Value.(*ast.Ident); ok {
			if b, bound := lc.bindings[id.Value]; bound && b.typ.IsLinear() {
				r.addError(&LinearError{
					Code: ErrDropNonResource, Name: id.Value, Function: lc.function,
					Message: "cannot copy a linear resource; use `move` to transfer ownership instead",
				})
			}
			return
		}
		r.checkExpr(mod, lc, ex.Value)

	case *ast.SpawnExpr:
		for _, k := range ex.Order {
			r.checkExpr(mod, lc, ex.Fields[k])
		}

	case *ast.SendExpr:
		r.checkExpr(mod, lc, ex.Target)
		r.checkExpr(mod, lc, ex.Message)

	case *ast.YieldExpr:
		if ex.Value != nil {
			r.checkExpr(mod, lc, ex.Value)
		}

	case *ast.AwaitExpr:
		r.checkExpr(mod, lc, ex.Target)

	default:
		r.errorf("unsupported expression %T", e)
	}
}

// inferType gives an untyped `let` binding a best-effort Type so the linear
// checker can still enforce resource discipline on it. Struct-literal and
// bare-call initialisers resolve to the constructed/returned type; anything
// else defaults to Void, which is always safely non-linear.
func (r *Resolver) inferType(mod *Module, lc *LinearChecker, value ast.Expression) Type {
	switch v := value.(type) {
	case *ast.StructLiteralExpr:
		if t, ok := mod.lookupType(v.Type); ok {
			return t
		}
	case *ast.Ident:
		if b, ok := lc.bindings[v.Value]; ok {
			return b.typ
		}
	case *ast.MoveExpr:
		return r.inferType(mod, lc, v.Value)
	}
	return Void
}
