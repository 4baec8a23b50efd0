/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package util contains utility classes for graph projections.

GraphError

Models a projection, catalog or algorithm related error. Low-level errors
(e.g. from a source store) should be wrapped in a GraphError before they are
returned to a client. Every error type belongs to exactly one error class which
a caller can query with ClassOf.

NamesManager

Manages names of labels and relationship types. Each stored name gets a 16 bit
number assigned. The manager provides functions to lookup either the names or
their numbers.
*/
package util

import (
	"errors"
	"fmt"
)

/*
GraphError is a graph related error
*/
type GraphError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (ge *GraphError) Error() string {
	if ge.Detail != "" {
		return fmt.Sprintf("GraphError: %v (%v)", ge.Type, ge.Detail)
	}

	return fmt.Sprintf("GraphError: %v", ge.Type)
}

/*
Unwrap returns the error type so errors.Is can be used on a GraphError.
*/
func (ge *GraphError) Unwrap() error {
	return ge.Type
}

/*
NewGraphError creates a new GraphError with a formatted detail message.
*/
func NewGraphError(errType error, detail string, args ...interface{}) *GraphError {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &GraphError{errType, detail}
}

/*
Configuration related error types
*/
var (
	ErrInvalidConfig    = errors.New("Invalid configuration")
	ErrUnknownConfigKey = errors.New("Unknown configuration key")
	ErrMemoryLimit      = errors.New("Memory limit exceeded")
)

/*
Projection related error types
*/
var (
	ErrUnknownLabel            = errors.New("Unknown label")
	ErrUnknownRelationshipType = errors.New("Unknown relationship type")
	ErrConflictingRelationship = errors.New("Conflicting relationship")
)

/*
Catalog related error types
*/
var (
	ErrGraphAlreadyExists            = errors.New("Graph already exists")
	ErrGraphNotFound                 = errors.New("Graph not found")
	ErrRelationshipTypeAlreadyExists = errors.New("Relationship type already exists")
)

/*
Property related error types
*/
var (
	ErrMissingProperty       = errors.New("Missing property")
	ErrUnknownProperty       = errors.New("Unknown property")
	ErrPropertyAlreadyExists = errors.New("Property already exists")
)

/*
Control flow and internal error types
*/
var (
	ErrCancelled    = errors.New("Operation cancelled")
	ErrInternal     = errors.New("Internal error")
	ErrSourceAccess = errors.New("Could not access source store")
)

/*
Class is the class of an error as seen by a caller.
*/
type Class string

/*
Known error classes
*/
const (
	ClassNone          Class = ""
	ClassConfiguration Class = "ConfigurationError"
	ClassProjection    Class = "ProjectionError"
	ClassCatalog       Class = "CatalogError"
	ClassProperty      Class = "PropertyError"
	ClassCancelled     Class = "Cancelled"
	ClassInternal      Class = "InternalError"
)

var errorClasses = map[error]Class{
	ErrInvalidConfig:                 ClassConfiguration,
	ErrUnknownConfigKey:              ClassConfiguration,
	ErrMemoryLimit:                   ClassConfiguration,
	ErrUnknownLabel:                  ClassProjection,
	ErrUnknownRelationshipType:       ClassProjection,
	ErrConflictingRelationship:       ClassProjection,
	ErrGraphAlreadyExists:            ClassCatalog,
	ErrGraphNotFound:                 ClassCatalog,
	ErrRelationshipTypeAlreadyExists: ClassCatalog,
	ErrMissingProperty:               ClassProperty,
	ErrUnknownProperty:               ClassProperty,
	ErrPropertyAlreadyExists:         ClassProperty,
	ErrCancelled:                     ClassCancelled,
	ErrInternal:                      ClassInternal,
	ErrSourceAccess:                  ClassInternal,
}

/*
ClassOf returns the error class of a given error. Errors which are not graph
errors are internal errors. A nil error has no class.
*/
func ClassOf(err error) Class {
	if err == nil {
		return ClassNone
	}

	var ge *GraphError

	if errors.As(err, &ge) {
		if c, ok := errorClasses[ge.Type]; ok {
			return c
		}
	}

	for t, c := range errorClasses {
		if errors.Is(err, t) {
			return c
		}
	}

	return ClassInternal
}
