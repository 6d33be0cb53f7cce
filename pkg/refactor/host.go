package refactor

import "github.com/mamaar/constprop/pkg/types"

// ClassQueries looks up classes and walks supertypes
type ClassQueries interface {
	LookupClass(qualifiedName string) (*types.Class, bool)
	Superclass(c *types.Class) (*types.Class, bool)
	IsWritable(c *types.Class) bool
	// FindSubtypesOf returns all direct and indirect subclasses declared in module
	FindSubtypesOf(c *types.Class, module string) []*types.Class
}

// PackageQueries looks up packages. FindSubpackagesOf returns direct
// children only.
type PackageQueries interface {
	LookupPackage(name string) (*types.Package, bool)
	FindSubpackagesOf(pkg *types.Package) []*types.Package
}

// OccurrenceFinder finds literals equivalent to a given one inside a root
type OccurrenceFinder interface {
	FindOccurrencesOf(lit *types.Literal, root types.Root) ([]*types.Literal, error)
}

// AnchorFinder returns the member that naturally encloses a set of sites
type AnchorFinder interface {
	AnchorFor(sites []*types.Literal) (types.Anchor, bool)
}

// Host is everything the pipeline needs from the structural query layer
type Host interface {
	ClassQueries
	PackageQueries
	OccurrenceFinder
	AnchorFinder
	LookupFile(path string) (*types.File, bool)
	IsStale(lit *types.Literal) bool
}
