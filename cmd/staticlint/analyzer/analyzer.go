package analyzer

import (
	"go/ast"
	"go/types"
	"strconv"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const (
	analyzerName = "forbiddencalls"
	analyzerDoc  = "reports panic and os.Exit outside main.main and any import of the standard log package"
)

// Analyzer checks for forbidden calls and the standard log package.
var Analyzer = &analysis.Analyzer{
	Name:     analyzerName,
	Doc:      analyzerDoc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.ImportSpec)(nil),
		(*ast.CallExpr)(nil),
	}

	insp.WithStack(nodeFilter, func(node ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}

		switch n := node.(type) {
		case *ast.ImportSpec:
			checkImport(pass, n)
		case *ast.CallExpr:
			checkCall(pass, n, stack)
		}
		return true
	})

	return nil, nil
}

func checkImport(pass *analysis.Pass, spec *ast.ImportSpec) {
	path, err := strconv.Unquote(spec.Path.Value)
	if err != nil {
		return
	}
	if path == "log" {
		pass.Reportf(spec.Pos(), "standard log package is forbidden, use zerolog")
	}
}

func checkCall(pass *analysis.Pass, callExpr *ast.CallExpr, stack []ast.Node) {
	switch fn := callExpr.Fun.(type) {
	case *ast.Ident:
		if _, ok := pass.TypesInfo.Uses[fn].(*types.Builtin); ok && fn.Name == "panic" {
			if !inMainFunc(pass, stack) {
				pass.Reportf(callExpr.Pos(), "panic is forbidden outside main function")
			}
		}
	case *ast.SelectorExpr:
		if isPkgFunc(pass, fn, "os", "Exit") && !inMainFunc(pass, stack) {
			pass.Reportf(callExpr.Pos(), "os.Exit is forbidden outside main function")
		}
	}
}

func isPkgFunc(pass *analysis.Pass, sel *ast.SelectorExpr, pkgPath, name string) bool {
	ident, ok := sel.X.(*ast.Ident)
	if !ok || sel.Sel.Name != name {
		return false
	}

	pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
	if !ok {
		return false
	}

	return pkgName.Imported().Path() == pkgPath
}

// inMainFunc reports whether the innermost enclosing declaration is func main
// of package main. Closures inside main count as main.
func inMainFunc(pass *analysis.Pass, stack []ast.Node) bool {
	if pass.Pkg.Name() != "main" {
		return false
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if decl, ok := stack[i].(*ast.FuncDecl); ok {
			return decl.Recv == nil && decl.Name.Name == "main"
		}
	}
	return false
}
