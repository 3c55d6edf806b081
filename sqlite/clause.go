package sqlite

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

type operator string

const (
	equalsOperator             operator = "="
	lessThanOperator           operator = "<"
	greaterThanOperator        operator = ">"
	lessThanOrEqualOperator    operator = "<="
	greaterThanOrEqualOperator operator = ">="
	notEqualsOperator          operator = "!="
	likeOperator               operator = "LIKE"
)

type combinator string

const (
	andCombinator combinator = "AND"
	orCombinator  combinator = "OR"
)

type number interface {
	constraints.Integer | constraints.Float
}

type scalar interface {
	string | number | bool
}

// Clause represents a query condition that can be converted to SQL.
// It provides a fluent interface for combining multiple conditions using AND and OR operators.
type Clause interface {
	// Clause returns the SQL representation of the condition using '?' as placeholders for values.
	Clause() string
	// Values returns the arguments to be used with the SQL query.
	Values() []any

	// And combines this clause with another one using the AND operator.
	And(c Clause) Clause
	// Or combines this clause with another one using the OR operator.
	Or(c Clause) Clause
}

// clause is the single Clause implementation; every constructor renders its SQL
// eagerly.
type clause struct {
	text   string
	values []any
}

func (c *clause) Clause() string { return c.text }

func (c *clause) Values() []any { return c.values }

func (c *clause) And(o Clause) Clause { return And(c, o) }

func (c *clause) Or(o Clause) Clause { return Or(c, o) }

// jsonField renders the extraction of a JSON path from the data column. Paths are
// embedded as SQL string literals so that expression indexes can match them.
func jsonField(path string) string {
	return fmt.Sprintf("data->>'%s'", strings.ReplaceAll(path, "'", "''"))
}

// sqlValue maps Go values onto what SQLite's ->> operator yields: JSON booleans come
// back as integers.
func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func combine(op combinator, clauses ...Clause) Clause {
	if len(clauses) == 0 {
		return &clause{text: "(1 == 1)"}
	}

	parts := make([]string, len(clauses))
	var values []any
	for i, c := range clauses {
		parts[i] = c.Clause()
		values = append(values, c.Values()...)
	}

	return &clause{
		text:   "(" + strings.Join(parts, fmt.Sprintf(" %s ", op)) + ")",
		values: values,
	}
}

// And returns a Clause that combines multiple clauses with an AND operator.
// If no clauses are provided, it returns a clause that always evaluates to true.
func And(clauses ...Clause) Clause {
	return combine(andCombinator, clauses...)
}

// Or returns a Clause that combines multiple clauses with an OR operator.
func Or(clauses ...Clause) Clause {
	return combine(orCombinator, clauses...)
}

// All returns a Clause that matches all records.
func All() Clause {
	return And()
}

func compare(path string, op operator, value any) Clause {
	return &clause{
		text:   fmt.Sprintf("(%s %s ?)", jsonField(path), op),
		values: []any{sqlValue(value)},
	}
}

// Equal returns a Clause that checks if a field is equal to a value.
func Equal[T scalar](path string, value T) Clause {
	return compare(path, equalsOperator, value)
}

// NotEqual returns a Clause that checks if a field is not equal to a value.
func NotEqual[T scalar](path string, value T) Clause {
	return compare(path, notEqualsOperator, value)
}

// True returns a Clause that checks if a boolean field is true.
func True(path string) Clause {
	return Equal(path, true)
}

// False returns a Clause that checks if a boolean field is false.
func False(path string) Clause {
	return Equal(path, false)
}

// LessThan returns a Clause that checks if a field is less than a value.
func LessThan[T string | number](path string, value T) Clause {
	return compare(path, lessThanOperator, value)
}

// GreaterThan returns a Clause that checks if a field is greater than a value.
func GreaterThan[T string | number](path string, value T) Clause {
	return compare(path, greaterThanOperator, value)
}

// LessThanOrEqual returns a Clause that checks if a field is less than or equal to a value.
func LessThanOrEqual[T string | number](path string, value T) Clause {
	return compare(path, lessThanOrEqualOperator, value)
}

// GreaterThanOrEqual returns a Clause that checks if a field is greater than or equal to a value.
func GreaterThanOrEqual[T string | number](path string, value T) Clause {
	return compare(path, greaterThanOrEqualOperator, value)
}

// Like returns a Clause that checks if a field matches a pattern using the SQL LIKE operator.
// It's up to the user to add the requisite % characters to the value.
func Like(path string, pattern string) Clause {
	return compare(path, likeOperator, pattern)
}

// In returns a Clause that checks if a field is in a list of values.
func In(path string, values ...any) Clause {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = sqlValue(v)
	}
	return &clause{
		text:   fmt.Sprintf("(%s IN (%s))", jsonField(path), placeholders(len(vals))),
		values: vals,
	}
}

// Between returns a Clause that checks if a field is between two values (inclusive).
func Between[T string | number](path string, from, to T) Clause {
	return &clause{
		text:   fmt.Sprintf("(%s BETWEEN ? AND ?)", jsonField(path)),
		values: []any{from, to},
	}
}

func contains[T scalar](path string, op combinator, values []T) Clause {
	if len(values) == 0 {
		if op == andCombinator {
			return All()
		}
		return &clause{text: "(1 == 0)"}
	}

	single := fmt.Sprintf("(EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = ?))", jsonField(path))

	parts := make([]string, len(values))
	vals := make([]any, len(values))
	for i, v := range values {
		parts[i] = single
		vals[i] = sqlValue(v)
	}

	if len(parts) == 1 {
		return &clause{text: single, values: vals}
	}
	return &clause{
		text:   "(" + strings.Join(parts, fmt.Sprintf(" %s ", op)) + ")",
		values: vals,
	}
}

// Contains returns a Clause that checks if a JSON array field contains a single value.
func Contains[T scalar](path string, value T) Clause {
	return ContainsAll(path, value)
}

// ContainsAll returns a Clause that checks if a JSON array field contains all the given values.
func ContainsAll[T scalar](path string, values ...T) Clause {
	return contains(path, andCombinator, values)
}

// ContainsAny returns a Clause that checks if a JSON array field contains any of the given values.
func ContainsAny[T scalar](path string, values ...T) Clause {
	return contains(path, orCombinator, values)
}
