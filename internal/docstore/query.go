package docstore

import (
	"fmt"
	"regexp"
)

// Method names a query predicate or modifier.
type Method string

const (
	MethodEqual            Method = "equal"
	MethodNotEqual         Method = "notEqual"
	MethodContains         Method = "contains"
	MethodGreaterThan      Method = "greaterThan"
	MethodGreaterThanEqual Method = "greaterThanEqual"
	MethodLessThan         Method = "lessThan"
	MethodLessThanEqual    Method = "lessThanEqual"
	MethodSearch           Method = "search"
	MethodIsNull           Method = "isNull"
	MethodOr               Method = "or"
	MethodAnd              Method = "and"
	MethodLimit            Method = "limit"
	MethodOffset           Method = "offset"
	MethodOrderAsc         Method = "orderAsc"
	MethodOrderDesc        Method = "orderDesc"
)

// System attributes every document carries.
const (
	AttrID        = "$id"
	AttrCreatedAt = "$createdAt"
	AttrUpdatedAt = "$updatedAt"
)

const (
	// DefaultLimit applies when a list call has no Limit query.
	DefaultLimit = 25
	// MaxLimit is the largest page a single list call may return.
	MaxLimit = 5000
)

// Query is one predicate or modifier of a ListDocuments call.
type Query struct {
	Method    Method
	Attribute string
	Values    []any
	Queries   []Query
}

// Equal matches documents whose attribute equals any of values. Array
// attributes match when any element equals any value.
func Equal(attribute string, values ...any) Query {
	return Query{Method: MethodEqual, Attribute: attribute, Values: values}
}

// NotEqual matches documents whose attribute equals none of values.
func NotEqual(attribute string, values ...any) Query {
	return Query{Method: MethodNotEqual, Attribute: attribute, Values: values}
}

// Contains matches array attributes holding any of values, or string
// attributes containing any of values as a case-insensitive substring.
func Contains(attribute string, values ...any) Query {
	return Query{Method: MethodContains, Attribute: attribute, Values: values}
}

func GreaterThan(attribute string, value any) Query {
	return Query{Method: MethodGreaterThan, Attribute: attribute, Values: []any{value}}
}

func GreaterThanEqual(attribute string, value any) Query {
	return Query{Method: MethodGreaterThanEqual, Attribute: attribute, Values: []any{value}}
}

func LessThan(attribute string, value any) Query {
	return Query{Method: MethodLessThan, Attribute: attribute, Values: []any{value}}
}

func LessThanEqual(attribute string, value any) Query {
	return Query{Method: MethodLessThanEqual, Attribute: attribute, Values: []any{value}}
}

// Search is a free-text match: every word of text must appear as a word of the attribute.
func Search(attribute, text string) Query {
	return Query{Method: MethodSearch, Attribute: attribute, Values: []any{text}}
}

// IsNull matches documents where the attribute is missing, null or an empty array.
func IsNull(attribute string) Query {
	return Query{Method: MethodIsNull, Attribute: attribute}
}

func Or(queries ...Query) Query {
	return Query{Method: MethodOr, Queries: queries}
}

func And(queries ...Query) Query {
	return Query{Method: MethodAnd, Queries: queries}
}

func Limit(n int) Query {
	return Query{Method: MethodLimit, Values: []any{n}}
}

func Offset(n int) Query {
	return Query{Method: MethodOffset, Values: []any{n}}
}

func OrderAsc(attribute string) Query {
	return Query{Method: MethodOrderAsc, Attribute: attribute}
}

func OrderDesc(attribute string) Query {
	return Query{Method: MethodOrderDesc, Attribute: attribute}
}

var attributePattern = regexp.MustCompile(`^\$?[A-Za-z_][A-Za-z0-9_]*$`)

// plan is a validated, split view of a query list.
type plan struct {
	filters []Query
	orders  []Query
	limit   int
	offset  int
}

func planQueries(queries []Query) (*plan, error) {
	p := &plan{limit: DefaultLimit}
	for _, q := range queries {
		switch q.Method {
		case MethodLimit, MethodOffset:
			n, err := intValue(q)
			if err != nil {
				return nil, err
			}
			if q.Method == MethodLimit {
				if n > MaxLimit {
					return nil, fmt.Errorf("%w: limit %d exceeds %d", ErrInvalidQuery, n, MaxLimit)
				}
				p.limit = n
			} else {
				p.offset = n
			}
		case MethodOrderAsc, MethodOrderDesc:
			if err := validateAttribute(q.Attribute); err != nil {
				return nil, err
			}
			p.orders = append(p.orders, q)
		default:
			if err := validateFilter(q); err != nil {
				return nil, err
			}
			p.filters = append(p.filters, q)
		}
	}
	return p, nil
}

func intValue(q Query) (int, error) {
	if len(q.Values) != 1 {
		return 0, fmt.Errorf("%w: %s takes one value", ErrInvalidQuery, q.Method)
	}
	n, ok := q.Values[0].(int)
	if !ok || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative int", ErrInvalidQuery, q.Method)
	}
	return n, nil
}

func validateFilter(q Query) error {
	switch q.Method {
	case MethodOr, MethodAnd:
		for _, sub := range q.Queries {
			if err := validateFilter(sub); err != nil {
				return err
			}
		}
		return nil
	case MethodIsNull:
		return validateAttribute(q.Attribute)
	case MethodEqual, MethodNotEqual, MethodContains:
		if len(q.Values) == 0 {
			return fmt.Errorf("%w: %s on %q needs at least one value", ErrInvalidQuery, q.Method, q.Attribute)
		}
		return validateAttribute(q.Attribute)
	case MethodGreaterThan, MethodGreaterThanEqual, MethodLessThan, MethodLessThanEqual, MethodSearch:
		if len(q.Values) != 1 {
			return fmt.Errorf("%w: %s on %q takes one value", ErrInvalidQuery, q.Method, q.Attribute)
		}
		return validateAttribute(q.Attribute)
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidQuery, q.Method)
	}
}

func validateAttribute(attribute string) error {
	if !attributePattern.MatchString(attribute) {
		return fmt.Errorf("%w: bad attribute %q", ErrInvalidQuery, attribute)
	}
	return nil
}

func isSystemAttribute(attribute string) bool {
	return attribute == AttrID || attribute == AttrCreatedAt || attribute == AttrUpdatedAt
}
