package types

import (
	"fmt"
	"strings"
)

// Operation represents any refactoring operation
type Operation interface {
	Type() OperationType
	Validate(ws *Workspace) error
	Execute(ws *Workspace) (*RefactoringPlan, error)
	Description() string
}

type OperationType int

const (
	PropagateConstantOperation OperationType = iota
	UndoOperation
)

// ScopeKind selects how far occurrence search reaches
type ScopeKind int

const (
	ClassScope ScopeKind = iota
	HierarchyScope
	PackageScope
)

// String returns the configuration spelling of a ScopeKind
func (k ScopeKind) String() string {
	switch k {
	case ClassScope:
		return "class"
	case HierarchyScope:
		return "hierarchy"
	case PackageScope:
		return "package"
	default:
		return fmt.Sprintf("scope(%d)", int(k))
	}
}

// Label returns the dialog label of a ScopeKind
func (k ScopeKind) Label() string {
	switch k {
	case ClassScope:
		return "Class"
	case HierarchyScope:
		return "Class Hierarchy"
	case PackageScope:
		return "Package"
	default:
		return k.String()
	}
}

// AllScopes lists the scopes in dialog order
var AllScopes = []ScopeKind{ClassScope, HierarchyScope, PackageScope}

// ParseScopeKind accepts the configuration spelling or the dialog label.
// Anything else is an UnknownCommand error.
func ParseScopeKind(s string) (ScopeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "class", "":
		return ClassScope, nil
	case "hierarchy", "class hierarchy", "classhierarchy", "class_hierarchy":
		return HierarchyScope, nil
	case "package":
		return PackageScope, nil
	}
	return ClassScope, &RefactorError{
		Type:    UnknownCommand,
		Message: fmt.Sprintf("unknown scope %q, expected class, hierarchy or package", s),
	}
}

// Visibility of a synthesized constant field
type Visibility int

const (
	Private Visibility = iota
	Protected
	PackagePrivate
)

// Keyword returns the modifier keyword, "" for package-private
func (v Visibility) Keyword() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	default:
		return ""
	}
}

// VisibilityFor returns the visibility the dialog uses for a scope:
// private for one class, protected for a hierarchy, package-private otherwise.
func VisibilityFor(scope ScopeKind) Visibility {
	switch scope {
	case ClassScope:
		return Private
	case HierarchyScope:
		return Protected
	default:
		return PackagePrivate
	}
}

// PropagationCommand is the user's decision for one invocation
type PropagationCommand struct {
	Literal    *Literal
	Scope      ScopeKind
	Name       string
	Visibility Visibility
	Preview    bool
}

// RootKind tells whether a root is a class extent or a package
type RootKind int

const (
	ClassRoot RootKind = iota
	PackageRoot
)

// Root is one search root
type Root struct {
	Kind RootKind
	Name string // qualified class name or dotted package name
}

// RootSet is a resolved scope selection
type RootSet struct {
	Scope ScopeKind
	Base  string // destination class for class and hierarchy scopes
	Roots []Root
}

// Empty reports whether the root set has nothing to search
func (rs *RootSet) Empty() bool {
	return rs == nil || len(rs.Roots) == 0
}

// OccurrenceSet holds the occurrences found for one invocation, sorted by
// file and offset and unique by position.
type OccurrenceSet struct {
	Selected          *Literal
	Sites             []*Literal // occurrences to rewrite
	FieldInitializers []*Literal // occurrences that initialise a field
}

// Len returns the number of rewrite sites
func (s *OccurrenceSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Sites)
}

// Contains reports whether lit is one of the rewrite sites
func (s *OccurrenceSet) Contains(lit *Literal) bool {
	if s == nil || lit == nil {
		return false
	}
	key := lit.Key()
	for _, site := range s.Sites {
		if site.Key() == key {
			return true
		}
	}
	return false
}

// ConstantFieldSpec describes the field to synthesize
type ConstantFieldSpec struct {
	Name        string
	Type        string
	Visibility  Visibility
	Static      bool
	Initializer string
	Container   string // qualified name of the destination
	Marker      bool   // destination is a <Pkg>ConstantsIF marker interface
	Interface   bool   // destination is an interface; no modifiers are emitted
}

// Declaration renders the field declaration without indentation
func (s *ConstantFieldSpec) Declaration() string {
	var b strings.Builder
	if !s.Interface {
		if kw := s.Visibility.Keyword(); kw != "" {
			b.WriteString(kw)
			b.WriteByte(' ')
		}
		if s.Static {
			b.WriteString("static ")
		}
	}
	fmt.Fprintf(&b, "%s %s = %s;", s.Type, s.Name, s.Initializer)
	return b.String()
}

// CommitStatus is the outcome of one invocation
type CommitStatus int

const (
	Committed CommitStatus = iota
	Aborted
	Cancelled
	Previewed
	Empty
)

// String returns the string representation of CommitStatus
func (s CommitStatus) String() string {
	switch s {
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	case Cancelled:
		return "cancelled"
	case Previewed:
		return "previewed"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

// CommitResult reports what an invocation did
type CommitResult struct {
	Status        CommitStatus
	Transaction   string // journal id, "" when nothing was written
	Field         string // name of the field referenced by the rewritten sites
	Container     string
	Reused        bool // an existing equivalent field was reused
	Sites         int
	Plan          *RefactoringPlan
	Preview       string
	AffectedFiles []string
}

// RefactoringPlan represents a planned set of changes
type RefactoringPlan struct {
	Name          string
	Operations    []Operation
	Changes       []Change
	AffectedFiles []string
	Impact        *ImpactAnalysis
	Reversible    bool
}

// Change represents a specific change to be made
type Change struct {
	File        string
	Start       int
	End         int
	OldText     string
	NewText     string
	Description string
	Create      bool // the file does not exist yet
}

// ImpactAnalysis shows what will be affected by a refactoring
type ImpactAnalysis struct {
	AffectedPackages []string
	AffectedFiles    []string
	PotentialIssues  []Issue
	ImportChanges    []ImportChange
}

// HasErrors reports whether any issue has Error severity
func (a *ImpactAnalysis) HasErrors() bool {
	if a == nil {
		return false
	}
	for _, issue := range a.PotentialIssues {
		if issue.Severity == Error {
			return true
		}
	}
	return false
}

type Issue struct {
	Type        IssueType
	Description string
	File        string
	Line        int
	Severity    IssueSeverity
}

type IssueType int

const (
	IssueNameConflict IssueType = iota
	IssueStaticContext
	IssueReadOnly
	IssueTypeMismatch
	IssueInaccessible
)

type IssueSeverity int

const (
	Error IssueSeverity = iota
	Warning
	Info
)

// String returns the string representation of IssueSeverity
func (s IssueSeverity) String() string {
	switch s {
	case Error:
		return "Error"
	case Warning:
		return "Warning"
	case Info:
		return "Info"
	default:
		return "Unknown"
	}
}

type ImportChange struct {
	File      string
	NewImport string
	Action    ImportAction
}

type ImportAction int

const (
	AddImport ImportAction = iota
	RemoveImport
)
