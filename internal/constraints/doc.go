// Package constraints holds tests that enforce the import layering of the
// module.
package constraints
