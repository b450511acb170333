// Package predicate selects relation rows.
//
// Two forms are supported. An [Expr] is a boolean expression over column
// names and literals:
//
//	age >= 18 and not (city == "Rome" or `zip code` == '00100')
//
// Operators are ==, !=, <, <=, >, >= combined with and, or, not and
// parentheses. Column names that are not plain identifiers are written
// between backticks. Values compare as numbers when both sides parse as
// numbers and as text otherwise.
//
// A [Filter] is an ordered set of exact column=value matches applied as
// successive narrowing steps.
package predicate
