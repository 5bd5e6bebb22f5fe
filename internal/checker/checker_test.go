package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycheck/internal/semantic"
)

func checkSource(t *testing.T, src string) []Diagnostic {
	t.Helper()
	p := semantic.NewProject()
	_, err := p.AddFile("main.py", []byte(src))
	require.NoError(t, err)
	return New(p).CheckFile("main.py")
}

func codes(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func TestCheckFile_CleanSource(t *testing.T) {
	diags := checkSource(t, `
x = 1
y = x

class A:
    pass

class B(A):
    pass
`)
	assert.Empty(t, diags)
}

func TestCheckFile_InconsistentMro(t *testing.T) {
	diags := checkSource(t, `
class A:
    pass

class B(A):
    pass

class C(A, B):
    pass
`)
	require.Len(t, diags, 1)
	assert.Equal(t, "inconsistent-mro", diags[0].Code)
	assert.Equal(t, SeverityError, diags[0].Severity)
	assert.Equal(t, 8, diags[0].Line)
	assert.Contains(t, diags[0].Message, `"C"`)
}

func TestCheckFile_CyclicClassDefinition(t *testing.T) {
	diags := checkSource(t, `
class A(B):
    pass

class B(A):
    pass
`)
	// Both participants are reported.
	require.Len(t, diags, 2)
	assert.Equal(t, "cyclic-class-definition", diags[0].Code)
	assert.Equal(t, "cyclic-class-definition", diags[1].Code)
}

func TestCheckFile_InvalidBase(t *testing.T) {
	diags := checkSource(t, `
class A(1):
    pass
`)
	require.Len(t, diags, 1)
	assert.Equal(t, "invalid-base", diags[0].Code)
	assert.Equal(t, SeverityError, diags[0].Severity)
}

func TestCheckFile_MetaclassConflict(t *testing.T) {
	diags := checkSource(t, `
class Meta1(type):
    pass

class Meta2(type):
    pass

class A(metaclass=Meta1):
    pass

class B(metaclass=Meta2):
    pass

class C(A, B):
    pass
`)
	require.Len(t, diags, 1)
	assert.Equal(t, "metaclass-conflict", diags[0].Code)
	assert.Equal(t, 14, diags[0].Line)
}

func TestCheckFile_MetaclassNotCallable(t *testing.T) {
	diags := checkSource(t, `
class A(metaclass=1):
    pass
`)
	require.Len(t, diags, 1)
	assert.Equal(t, "metaclass-not-callable", diags[0].Code)
}

func TestCheckFile_UnbalancedUnpacking(t *testing.T) {
	diags := checkSource(t, `
a, b = 1, 2, 3
`)
	require.Len(t, diags, 1)
	assert.Equal(t, "unbalanced-unpacking", diags[0].Code)
	assert.Equal(t, 2, diags[0].Line)
	assert.Contains(t, diags[0].Message, "too many")

	diags = checkSource(t, `
a, b, c = 1, 2
`)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "not enough")
}

func TestCheckFile_BalancedUnpacking(t *testing.T) {
	assert.Empty(t, checkSource(t, `
a, b = 1, 2
first, *rest = 1, 2, 3
`))
}

func TestCheckFile_UnresolvedReference(t *testing.T) {
	diags := checkSource(t, `
y = missing
`)
	require.Len(t, diags, 1)
	assert.Equal(t, "unresolved-reference", diags[0].Code)
	assert.Equal(t, SeverityError, diags[0].Severity)
	assert.Equal(t, 2, diags[0].Line)
	assert.Equal(t, 5, diags[0].Col)
	assert.Contains(t, diags[0].Message, `"missing"`)
}

func TestCheckFile_PossiblyUnresolvedReference(t *testing.T) {
	diags := checkSource(t, `
flag = 1
if flag:
    x = 1
y = x
`)
	require.Len(t, diags, 1)
	assert.Equal(t, "possibly-unresolved-reference", diags[0].Code)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
	assert.Equal(t, 5, diags[0].Line)
}

func TestCheckFile_BuiltinReferencesResolve(t *testing.T) {
	assert.Empty(t, checkSource(t, `
kind = type
numeric = int
`))
}

func TestCheckFile_ClassHeadNamesResolveOutsideBody(t *testing.T) {
	// Base-class names live in the defining scope, not the class body.
	assert.Empty(t, checkSource(t, `
class Base:
    pass

class Derived(Base):
    value = Base
`))
}

func TestCheckFile_DiagnosticsSortedByPosition(t *testing.T) {
	diags := checkSource(t, `
y = missing_one

class A(1):
    pass

z = missing_two
`)
	require.Len(t, diags, 3)
	assert.Equal(t, []string{"unresolved-reference", "invalid-base", "unresolved-reference"}, codes(diags))
	assert.True(t, diags[0].Line < diags[1].Line && diags[1].Line < diags[2].Line)
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		File: "pkg/mod.py", Line: 3, Col: 7,
		Code: "unresolved-reference", Severity: SeverityError,
		Message: `name "x" is not defined`,
	}
	assert.Equal(t, `pkg/mod.py:3:7: error [unresolved-reference] name "x" is not defined`, d.String())
}
