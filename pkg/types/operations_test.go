package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScopeKind(t *testing.T) {
	testCases := []struct {
		in       string
		expected ScopeKind
	}{
		{"class", ClassScope},
		{"Class", ClassScope},
		{"", ClassScope},
		{"hierarchy", HierarchyScope},
		{"Class Hierarchy", HierarchyScope},
		{"package", PackageScope},
		{" PACKAGE ", PackageScope},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseScopeKind(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	_, err := ParseScopeKind("module")
	require.Error(t, err)
	assert.True(t, IsKind(err, UnknownCommand))
}

func TestVisibilityFor(t *testing.T) {
	assert.Equal(t, "private", VisibilityFor(ClassScope).Keyword())
	assert.Equal(t, "protected", VisibilityFor(HierarchyScope).Keyword())
	assert.Equal(t, "", VisibilityFor(PackageScope).Keyword())
}

func TestConstantFieldSpec_Declaration(t *testing.T) {
	testCases := []struct {
		name     string
		spec     ConstantFieldSpec
		expected string
	}{
		{
			name:     "private instance",
			spec:     ConstantFieldSpec{Name: "GREETING", Type: "String", Visibility: Private, Initializer: `"Hello"`},
			expected: `private String GREETING = "Hello";`,
		},
		{
			name:     "protected static",
			spec:     ConstantFieldSpec{Name: "INT_5", Type: "int", Visibility: Protected, Static: true, Initializer: "5"},
			expected: "protected static int INT_5 = 5;",
		},
		{
			name:     "package private",
			spec:     ConstantFieldSpec{Name: "LIMIT", Type: "long", Visibility: PackagePrivate, Initializer: "10L"},
			expected: "long LIMIT = 10L;",
		},
		{
			name:     "interface destination",
			spec:     ConstantFieldSpec{Name: "ANSWER", Type: "int", Visibility: Private, Static: true, Initializer: "42", Interface: true},
			expected: "int ANSWER = 42;",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.spec.Declaration())
		})
	}
}

func TestOccurrenceSet_Contains(t *testing.T) {
	a := &Literal{File: "A.java", Start: 1, End: 3}
	b := &Literal{File: "A.java", Start: 5, End: 7}
	set := &OccurrenceSet{Sites: []*Literal{a}}

	assert.True(t, set.Contains(&Literal{File: "A.java", Start: 1, End: 3}))
	assert.False(t, set.Contains(b))
	assert.Equal(t, 1, set.Len())

	var empty *OccurrenceSet
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Contains(a))
}

func TestImpactAnalysis_HasErrors(t *testing.T) {
	var nilImpact *ImpactAnalysis
	assert.False(t, nilImpact.HasErrors())

	impact := &ImpactAnalysis{PotentialIssues: []Issue{{Severity: Warning}}}
	assert.False(t, impact.HasErrors())
	impact.PotentialIssues = append(impact.PotentialIssues, Issue{Severity: Error})
	assert.True(t, impact.HasErrors())
}
