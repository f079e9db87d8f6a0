package solidity

// Walk visits every statement in body depth-first, descending into
// nested blocks, branches and loop bodies.
func Walk(body []Stmt, visit func(Stmt)) {
	for _, s := range body {
		visit(s)
		switch st := s.(type) {
		case *IfStmt:
			Walk(st.Then, visit)
			Walk(st.Else, visit)
		case *ForStmt:
			if st.Init != nil {
				Walk([]Stmt{st.Init}, visit)
			}
			Walk(st.Body, visit)
			if st.Post != nil {
				Walk([]Stmt{st.Post}, visit)
			}
		case *WhileStmt:
			Walk(st.Body, visit)
		case *BlockStmt:
			Walk(st.Body, visit)
		}
	}
}

// WalkExpr visits e and all its subexpressions.
func WalkExpr(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch x := e.(type) {
	case *Binary:
		WalkExpr(x.Left, visit)
		WalkExpr(x.Right, visit)
	case *Unary:
		WalkExpr(x.X, visit)
	case *Call:
		WalkExpr(x.Target, visit)
		for _, a := range x.Args {
			WalkExpr(a, visit)
		}
	case *Member:
		WalkExpr(x.X, visit)
	case *Index:
		WalkExpr(x.X, visit)
		WalkExpr(x.Key, visit)
	}
}

// StmtExprs visits the expressions directly held by one statement.
func StmtExprs(s Stmt, visit func(Expr)) {
	switch st := s.(type) {
	case *DeclStmt:
		WalkExpr(st.Value, visit)
	case *AssignStmt:
		WalkExpr(st.Target, visit)
		WalkExpr(st.Value, visit)
	case *RequireStmt:
		WalkExpr(st.Cond, visit)
	case *IfStmt:
		WalkExpr(st.Cond, visit)
	case *ForStmt:
		WalkExpr(st.Cond, visit)
	case *WhileStmt:
		WalkExpr(st.Cond, visit)
	case *ReturnStmt:
		WalkExpr(st.Value, visit)
	case *ExprStmt:
		WalkExpr(st.X, visit)
	}
}
