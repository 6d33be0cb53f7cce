package refactor

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mamaar/constprop/pkg/types"
)

// TransactionName labels every propagation plan and journal entry
const TransactionName = "IntroduceAndPropagateConstant"

// MarkerSuffix is appended to the capitalised package name to name the
// interface that holds package-wide constants.
const MarkerSuffix = "ConstantsIF"

const defaultIndent = "    "

// WriteRequest is the input of the constant writer
type WriteRequest struct {
	Set        *types.OccurrenceSet
	Roots      *types.RootSet
	Visibility types.Visibility
	Name       string
}

// WriteResult is the plan the writer produced plus what it decided
type WriteResult struct {
	Plan      *types.RefactoringPlan
	Field     *types.ConstantFieldSpec // nil when an existing field is reused
	FieldName string
	Container string
	Reused    bool
	Sites     []*types.Literal
}

// Writer turns an occurrence set into field, rewrite and import edits
type Writer struct {
	host   Host
	titler cases.Caser
}

func NewWriter(host Host) *Writer {
	return &Writer{
		host:   host,
		titler: cases.Title(language.Und, cases.NoLower),
	}
}

// destination is the container the field lives in
type destination struct {
	class     *types.Class // nil for a marker interface that does not exist yet
	qualified string
	simple    string
	pkg       string
	marker    bool
	newPath   string // file to create for a new marker interface
}

func (d *destination) isInterface() bool {
	return d.marker || (d.class != nil && d.class.IsInterface())
}

// MarkerName returns the marker interface name for a package
func (w *Writer) MarkerName(pkg string) string {
	last := pkg
	if i := strings.LastIndex(pkg, "."); i >= 0 {
		last = pkg[i+1:]
	}
	return w.titler.String(last) + MarkerSuffix
}

// Write builds the plan. It does not touch the file system.
func (w *Writer) Write(req WriteRequest) (*WriteResult, error) {
	set := req.Set
	if set == nil || req.Roots == nil {
		return nil, &types.RefactorError{Type: types.InvalidOperation, Message: "nothing to write"}
	}
	if set.Selected != nil && w.host.IsStale(set.Selected) {
		return nil, types.NewStaleError(set.Selected)
	}
	for _, lit := range append(append([]*types.Literal{}, set.Sites...), set.FieldInitializers...) {
		if w.host.IsStale(lit) {
			return nil, types.NewStaleError(lit)
		}
	}

	impact := &types.ImpactAnalysis{}
	sites := w.writableSites(set.Sites, impact)

	dest, err := w.resolveDestination(req.Roots, set.Selected)
	if err != nil {
		return nil, err
	}

	res := &WriteResult{
		Container: dest.qualified,
		Sites:     sites,
		Plan: &types.RefactoringPlan{
			Name:       TransactionName,
			Impact:     impact,
			Reversible: true,
		},
	}
	if len(sites) == 0 {
		return res, nil
	}

	var changes []types.Change
	if existing := w.existingField(set.FieldInitializers, dest); existing != nil {
		res.Reused = true
		res.FieldName = existing.Name
		if !existing.Static && anyStatic(sites) {
			impact.PotentialIssues = append(impact.PotentialIssues, types.Issue{
				Type:        types.IssueStaticContext,
				Description: fmt.Sprintf("instance field %s is referenced from a static context", existing.Name),
				File:        dest.class.File,
				Line:        existing.Line,
				Severity:    types.Warning,
			})
		}
		if existing.Private {
			if outside := sitesOutside(sites, dest.qualified); outside > 0 {
				impact.PotentialIssues = append(impact.PotentialIssues, types.Issue{
					Type:        types.IssueInaccessible,
					Description: fmt.Sprintf("private field %s is referenced from %d occurrence(s) outside %s", existing.Name, outside, dest.simple),
					File:        dest.class.File,
					Line:        existing.Line,
					Severity:    types.Warning,
				})
			}
		}
	} else {
		spec := w.fieldSpec(req, dest, set.Selected, sites)
		res.Field = spec
		res.FieldName = spec.Name
		if dest.class != nil {
			if f, ok := dest.class.FieldNamed(spec.Name); ok {
				impact.PotentialIssues = append(impact.PotentialIssues, types.Issue{
					Type:        types.IssueNameConflict,
					Description: fmt.Sprintf("%s already declares a field named %s", dest.simple, spec.Name),
					File:        dest.class.File,
					Line:        f.Line,
					Severity:    types.Error,
				})
			}
		}
		change, err := w.fieldInsertion(dest, spec, sites)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}

	for _, site := range sites {
		ref := res.FieldName
		if w.qualify(dest, site) {
			ref = dest.simple + "." + res.FieldName
		}
		changes = append(changes, types.Change{
			File:        site.File,
			Start:       site.Start,
			End:         site.End,
			OldText:     site.Text,
			NewText:     ref,
			Description: fmt.Sprintf("Replace %s with %s", site.Text, ref),
		})
	}

	changes = append(changes, w.importChanges(dest, sites, impact)...)

	res.Plan.Changes = changes
	res.Plan.AffectedFiles = affectedFiles(changes)
	impact.AffectedFiles = res.Plan.AffectedFiles
	impact.AffectedPackages = w.affectedPackages(changes, dest)
	return res, nil
}

// writableSites drops sites in files that may not be edited
func (w *Writer) writableSites(sites []*types.Literal, impact *types.ImpactAnalysis) []*types.Literal {
	out := make([]*types.Literal, 0, len(sites))
	for _, s := range sites {
		if f, ok := w.host.LookupFile(s.File); ok && !f.Writable {
			impact.PotentialIssues = append(impact.PotentialIssues, types.Issue{
				Type:        types.IssueReadOnly,
				Description: fmt.Sprintf("occurrence %s left unchanged in read-only file", s.Text),
				File:        s.File,
				Line:        s.Line,
				Severity:    types.Info,
			})
			continue
		}
		out = append(out, s)
	}
	return out
}

func (w *Writer) resolveDestination(rs *types.RootSet, selected *types.Literal) (*destination, error) {
	if rs.Scope != types.PackageScope {
		c, ok := w.host.LookupClass(rs.Base)
		if !ok {
			return nil, &types.RefactorError{
				Type:    types.NoRoot,
				Message: fmt.Sprintf("destination class %s not found", rs.Base),
			}
		}
		if !w.host.IsWritable(c) {
			return nil, &types.RefactorError{
				Type:    types.InvalidOperation,
				Message: fmt.Sprintf("destination class %s is read-only", c.QualifiedName),
				File:    c.File,
				Line:    c.Line,
			}
		}
		return &destination{class: c, qualified: c.QualifiedName, simple: c.Name, pkg: c.Package}, nil
	}

	if selected == nil || selected.Package == "" {
		return nil, &types.RefactorError{Type: types.NoRoot, Message: "package scope needs a named package"}
	}
	name := w.MarkerName(selected.Package)
	qn := selected.Package + "." + name
	d := &destination{qualified: qn, simple: name, pkg: selected.Package, marker: true}
	if c, ok := w.host.LookupClass(qn); ok {
		d.class = c
		return d, nil
	}
	d.newPath = filepath.Join(filepath.Dir(selected.File), name+".java")
	return d, nil
}

// existingField returns a destination field whose initializer is exactly
// one of the collected occurrences
func (w *Writer) existingField(inits []*types.Literal, dest *destination) *types.Field {
	if dest.class == nil {
		return nil
	}
	for _, lit := range inits {
		if lit.Class != dest.qualified || lit.Field == "" {
			continue
		}
		f, ok := dest.class.FieldNamed(lit.Field)
		if !ok || f.InitStart != lit.Start || f.InitEnd != lit.End {
			continue
		}
		return f
	}
	return nil
}

func (w *Writer) fieldSpec(req WriteRequest, dest *destination, selected *types.Literal, sites []*types.Literal) *types.ConstantFieldSpec {
	rep := sites[0]
	for _, s := range sites {
		if selected != nil && s.Key() == selected.Key() {
			rep = s
			break
		}
	}
	static := anyStatic(sites)
	if dest.class != nil && dest.class.Kind == types.RecordDecl {
		static = true
	}
	return &types.ConstantFieldSpec{
		Name:        req.Name,
		Type:        rep.Type,
		Visibility:  req.Visibility,
		Static:      static,
		Initializer: rep.Text,
		Container:   dest.qualified,
		Marker:      dest.marker,
		Interface:   dest.isInterface(),
	}
}

// fieldInsertion places the declaration: after the destination's last
// field (or before the anchor member) when the anchor lies inside the
// destination, otherwise at the end of the member list.
func (w *Writer) fieldInsertion(dest *destination, spec *types.ConstantFieldSpec, sites []*types.Literal) (types.Change, error) {
	decl := spec.Declaration()
	desc := fmt.Sprintf("Add field %s to %s", spec.Name, dest.simple)

	if dest.class == nil {
		return types.Change{
			File:        dest.newPath,
			NewText:     markerSource(dest.pkg, dest.simple, defaultIndent+decl),
			Description: fmt.Sprintf("Create %s with field %s", dest.simple, spec.Name),
			Create:      true,
		}, nil
	}

	c := dest.class
	f, ok := w.host.LookupFile(c.File)
	if !ok {
		return types.Change{}, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("file for %s is not loaded", c.QualifiedName),
			File:    c.File,
		}
	}
	src := f.Content
	indent := memberIndent(c)

	anchor, ok := w.host.AnchorFor(sites)
	if ok && anchor.Class == c.QualifiedName && !dest.marker {
		if n := len(c.Fields); n > 0 {
			at := lineEnd(src, c.Fields[n-1].End)
			text := indent + decl + "\n"
			if at == len(src) && (at == 0 || src[at-1] != '\n') {
				text = "\n" + text
			}
			return types.Change{File: c.File, Start: at, End: at, NewText: text, Description: desc}, nil
		}
		at := anchor.Member.LineStart
		if anchor.Member.Indent != "" {
			indent = anchor.Member.Indent
		}
		return types.Change{File: c.File, Start: at, End: at, NewText: indent + decl + "\n\n", Description: desc}, nil
	}

	// append at the end of the member list
	text := indent + decl + "\n"
	if c.NeedsTerminator {
		text = indent + ";\n" + text
	} else if len(c.Members) > 0 {
		text = "\n" + text
	}
	at, onOwnLine := closingLine(src, c.BodyEnd)
	if !onOwnLine {
		text = "\n" + strings.TrimPrefix(text, "\n")
	}
	return types.Change{File: c.File, Start: at, End: at, NewText: text, Description: desc}, nil
}

// qualify reports whether a site needs Container.FIELD. The field is in
// scope when any declaration lexically enclosing the site inherits it.
func (w *Writer) qualify(dest *destination, site *types.Literal) bool {
	if dest.marker {
		return true
	}
	for name := site.Nested; name != ""; {
		if w.related(name, dest.qualified) {
			return false
		}
		c, ok := w.host.LookupClass(name)
		if !ok {
			break
		}
		name = c.Outer
	}
	return !w.related(site.Class, dest.qualified)
}

// related reports whether class is dest or inherits from it
func (w *Writer) related(class, dest string) bool {
	seen := make(map[string]bool)
	for class != "" && !seen[class] {
		if class == dest {
			return true
		}
		seen[class] = true
		c, ok := w.host.LookupClass(class)
		if !ok {
			return false
		}
		sup, ok := w.host.Superclass(c)
		if !ok {
			return false
		}
		class = sup.QualifiedName
	}
	return false
}

// importChanges adds one import of the destination to every site file in
// another package that does not import it yet
func (w *Writer) importChanges(dest *destination, sites []*types.Literal, impact *types.ImpactAnalysis) []types.Change {
	if dest.pkg == "" {
		return nil
	}
	done := make(map[string]bool)
	var changes []types.Change
	for _, site := range sites {
		if done[site.File] {
			continue
		}
		done[site.File] = true
		f, ok := w.host.LookupFile(site.File)
		if !ok || f.Package == dest.pkg || f.ImportsClass(dest.qualified) {
			continue
		}

		stmt := "import " + dest.qualified + ";\n"
		// import and package offsets already sit at the start of the next line
		at := f.ImportInsertOffset()
		switch {
		case at > 0 && f.Content[at-1] != '\n':
			stmt = "\n" + stmt
		case len(f.Imports) == 0 && f.PackageDeclEnd > 0:
			stmt = "\n" + stmt
		case at == 0:
			stmt += "\n"
		}
		changes = append(changes, types.Change{
			File:        f.Path,
			Start:       at,
			End:         at,
			NewText:     stmt,
			Description: fmt.Sprintf("Import %s", dest.qualified),
		})
		impact.ImportChanges = append(impact.ImportChanges, types.ImportChange{
			File:      f.Path,
			NewImport: dest.qualified,
			Action:    types.AddImport,
		})
	}
	return changes
}

func (w *Writer) affectedPackages(changes []types.Change, dest *destination) []string {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	add(dest.pkg)
	for _, ch := range changes {
		if f, ok := w.host.LookupFile(ch.File); ok {
			add(f.Package)
		}
	}
	sort.Strings(out)
	return out
}

func affectedFiles(changes []types.Change) []string {
	seen := map[string]bool{}
	var out []string
	for _, ch := range changes {
		if !seen[ch.File] {
			seen[ch.File] = true
			out = append(out, ch.File)
		}
	}
	sort.Strings(out)
	return out
}

// sitesOutside counts the sites whose top-level class is not class
func sitesOutside(sites []*types.Literal, class string) int {
	n := 0
	for _, s := range sites {
		if s.Class != class {
			n++
		}
	}
	return n
}

func anyStatic(sites []*types.Literal) bool {
	for _, s := range sites {
		if s.Static {
			return true
		}
	}
	return false
}

func markerSource(pkg, name, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s;\n\n", pkg)
	fmt.Fprintf(&b, "public interface %s {\n", name)
	b.WriteString(body)
	b.WriteString("\n}\n")
	return b.String()
}

// memberIndent returns the indentation used by the class's members
func memberIndent(c *types.Class) string {
	for _, m := range c.Members {
		if m.Indent != "" {
			return m.Indent
		}
	}
	return defaultIndent
}

func lineEnd(src []byte, offset int) int {
	for i := offset; i < len(src); i++ {
		if src[i] == '\n' {
			return i + 1
		}
	}
	return len(src)
}

// closingLine returns where text before the closing brace at offset goes,
// and whether the brace sits alone at the start of its line
func closingLine(src []byte, offset int) (int, bool) {
	i := offset
	for i > 0 && (src[i-1] == ' ' || src[i-1] == '\t') {
		i--
	}
	if i == 0 || src[i-1] == '\n' {
		return i, true
	}
	return offset, false
}
