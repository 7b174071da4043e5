// Package validator validates usecase input structs through struct tags.
//
// Failures come back as a field to message map keyed by snake_case field
// names so the HTTP layer can return them as is.
package validator
