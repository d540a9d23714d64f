// Package pathexpr addresses locations inside an entity tree with dotted
// path expressions.
//
// A path is a sequence of segments separated by '.'. Each segment names a
// field and may carry one selector:
//
//	name      field value
//	name[3]   element 3 of the collection held by name
//	name[~]   last element of the collection held by name
//	name[]    every element of the collection held by name (iteration only)
//
// Resolve reads a single location, Attribute writes one, and Iterate walks
// every location matched by the wildcards of a path, lazily and in document
// order, reporting the concrete path of each visited value.
package pathexpr
