package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpipe/workpipe/pkg/ast"
)

func TestResolveTypeRefPrimitive(t *testing.T) {
	reg := newRegistry("f.workpipe")
	typ, ok := ResolveTypeRef(reg, "string")
	require.True(t, ok)
	assert.Equal(t, "string", typ.(ast.PrimitiveType).Name)
}

func TestResolveTypeRefUnknown(t *testing.T) {
	reg := newRegistry("f.workpipe")
	_, ok := ResolveTypeRef(reg, "Nope")
	assert.False(t, ok)
}

func TestCheckTypeRefsFlagsUnknownFieldType(t *testing.T) {
	f := &ast.File{
		Path: "f.workpipe",
		Types: []*ast.TypeDecl{
			{Name: "Config", Type: ast.ObjectType{Fields: []ast.FieldDecl{
				{Name: "mode", Type: ast.PrimitiveType{Name: "Mode"}},
			}}},
		},
	}
	reg := newRegistry("f.workpipe")
	diags := CheckTypeRefs(reg, f)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, "WP5002", all[0].Code)
}

func TestCheckTypeRefsAcceptsKnownLocalType(t *testing.T) {
	f := &ast.File{
		Path: "f.workpipe",
		Types: []*ast.TypeDecl{
			{Name: "Mode", Type: ast.StringLitType{Value: "fast"}},
			{Name: "Config", Type: ast.ObjectType{Fields: []ast.FieldDecl{
				{Name: "mode", Type: ast.PrimitiveType{Name: "Mode"}},
			}}},
		},
	}
	reg := newRegistry("f.workpipe")
	reg.Symbols["Mode"] = Symbol{Name: "Mode", Kind: SymbolType, Type: ast.StringLitType{Value: "fast"}}
	diags := CheckTypeRefs(reg, f)
	assert.Empty(t, diags.All())
}

func TestCheckTypeRefsWalksUnionAndListMembers(t *testing.T) {
	f := &ast.File{
		Path: "f.workpipe",
		Types: []*ast.TypeDecl{
			{Name: "Result", Type: ast.UnionType{Members: []ast.Type{
				ast.ListType{Elem: ast.PrimitiveType{Name: "Missing"}},
			}}},
		},
	}
	reg := newRegistry("f.workpipe")
	diags := CheckTypeRefs(reg, f)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, "WP5002", all[0].Code)
}

func TestCheckTypeRefsWalksJobOutputs(t *testing.T) {
	job := &ast.Job{Name: "build", Body: ast.JobBody{
		Outputs: []ast.FieldDecl{{Name: "version", Type: ast.PrimitiveType{Name: "Undeclared"}}},
	}}
	wf := &ast.WorkflowDecl{Jobs: []ast.JobLike{job}}
	f := &ast.File{Path: "f.workpipe", Workflow: wf}
	reg := newRegistry("f.workpipe")
	diags := CheckTypeRefs(reg, f)
	all := diags.All()
	require.Len(t, all, 1)
	assert.Equal(t, "WP5002", all[0].Code)
}
