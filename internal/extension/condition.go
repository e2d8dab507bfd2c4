package extension

// ConditionType discriminates the condition variants on the wire and in
// memory. The string values are the `type` tag of the JSON encoding.
type ConditionType string

// Condition variants.
const (
	TypeEmpty          ConditionType = "Empty"
	TypeAnd            ConditionType = "And"
	TypeOr             ConditionType = "Or"
	TypeNot            ConditionType = "Not"
	TypeEqual          ConditionType = "Equal"
	TypeNotEqual       ConditionType = "NotEqual"
	TypeIn             ConditionType = "In"
	TypeNotIn          ConditionType = "NotIn"
	TypeLessThan       ConditionType = "LessThan"
	TypeGreaterThan    ConditionType = "GreaterThan"
	TypeBetween        ConditionType = "Between"
	TypeNotBetween     ConditionType = "NotBetween"
	TypeIsNull         ConditionType = "IsNull"
	TypeIsNotNull      ConditionType = "IsNotNull"
	TypeContains       ConditionType = "Contains"
	TypeLabelExists    ConditionType = "LabelExists"
	TypeLabelNotExists ConditionType = "LabelNotExists"
	TypeLabelEquals    ConditionType = "LabelEquals"
	TypeLabelNotEquals ConditionType = "LabelNotEquals"
	TypeLabelIn        ConditionType = "LabelIn"
	TypeLabelNotIn     ConditionType = "LabelNotIn"
)

// Condition is one node of a query tree: a leaf predicate or a boolean
// combinator over two subtrees. Only the fields relevant to Type are set;
// the zero fields are omitted from the JSON encoding, so the wire format
// is a flat tagged object per node with nested objects for combinators.
//
// Predicate payloads (Value, Values, Bound, FromKey, ToKey) are untyped
// JSON scalars; the index layer coerces them to the target index's key
// type at evaluation time.
type Condition struct {
	Type ConditionType `json:"type"`

	// Combinators.
	Left  *Condition `json:"left,omitempty"`
	Right *Condition `json:"right,omitempty"`
	Inner *Condition `json:"condition,omitempty"`

	// Value predicates.
	IndexName     string `json:"index_name,omitempty"`
	Value         any    `json:"value,omitempty"`
	Values        []any  `json:"values,omitempty"`
	Bound         any    `json:"bound,omitempty"`
	Inclusive     bool   `json:"inclusive,omitempty"`
	FromKey       any    `json:"from_key,omitempty"`
	FromInclusive bool   `json:"from_inclusive,omitempty"`
	ToKey         any    `json:"to_key,omitempty"`
	ToInclusive   bool   `json:"to_inclusive,omitempty"`
	Keyword       string `json:"keyword,omitempty"`

	// Label predicates.
	LabelKey    string   `json:"label_key,omitempty"`
	LabelValue  string   `json:"label_value,omitempty"`
	LabelValues []string `json:"label_values,omitempty"`
}

// Empty returns the match-all condition.
func Empty() *Condition {
	return &Condition{Type: TypeEmpty}
}

// And combines two conditions conjunctively.
func And(left, right *Condition) *Condition {
	return &Condition{Type: TypeAnd, Left: left, Right: right}
}

// Or combines two conditions disjunctively.
func Or(left, right *Condition) *Condition {
	return &Condition{Type: TypeOr, Left: left, Right: right}
}

// Not negates a condition.
func Not(inner *Condition) *Condition {
	return &Condition{Type: TypeNot, Inner: inner}
}

// And appends another condition conjunctively, returning the new root.
func (c *Condition) And(other *Condition) *Condition { return And(c, other) }

// Or appends another condition disjunctively, returning the new root.
func (c *Condition) Or(other *Condition) *Condition { return Or(c, other) }

// Not negates the condition, returning the new root.
func (c *Condition) Not() *Condition { return Not(c) }

// Equal matches resources whose indexed key equals value.
func Equal(indexName string, value any) *Condition {
	return &Condition{Type: TypeEqual, IndexName: indexName, Value: value}
}

// NotEqual matches resources whose indexed key differs from value,
// including resources with no key at all.
func NotEqual(indexName string, value any) *Condition {
	return &Condition{Type: TypeNotEqual, IndexName: indexName, Value: value}
}

// In matches resources whose indexed key is one of values. A single-element
// values list is canonicalized to Equal; the evaluator accepts both forms.
func In(indexName string, values ...any) *Condition {
	if len(values) == 1 {
		return Equal(indexName, values[0])
	}
	return &Condition{Type: TypeIn, IndexName: indexName, Values: values}
}

// NotIn matches resources whose indexed key is none of values.
func NotIn(indexName string, values ...any) *Condition {
	return &Condition{Type: TypeNotIn, IndexName: indexName, Values: values}
}

// LessThan matches resources whose indexed key is below bound.
func LessThan(indexName string, bound any, inclusive bool) *Condition {
	return &Condition{Type: TypeLessThan, IndexName: indexName, Bound: bound, Inclusive: inclusive}
}

// GreaterThan matches resources whose indexed key is above bound.
func GreaterThan(indexName string, bound any, inclusive bool) *Condition {
	return &Condition{Type: TypeGreaterThan, IndexName: indexName, Bound: bound, Inclusive: inclusive}
}

// Between matches resources whose indexed key lies in [from, to], with
// per-endpoint inclusivity.
func Between(indexName string, from any, fromInclusive bool, to any, toInclusive bool) *Condition {
	return &Condition{
		Type: TypeBetween, IndexName: indexName,
		FromKey: from, FromInclusive: fromInclusive,
		ToKey: to, ToInclusive: toInclusive,
	}
}

// NotBetween is the complement of Between within the indexed population.
func NotBetween(indexName string, from any, fromInclusive bool, to any, toInclusive bool) *Condition {
	return &Condition{
		Type: TypeNotBetween, IndexName: indexName,
		FromKey: from, FromInclusive: fromInclusive,
		ToKey: to, ToInclusive: toInclusive,
	}
}

// IsNull matches resources whose extract produced no key for the index.
func IsNull(indexName string) *Condition {
	return &Condition{Type: TypeIsNull, IndexName: indexName}
}

// IsNotNull matches resources that carry at least one key in the index.
func IsNotNull(indexName string) *Condition {
	return &Condition{Type: TypeIsNotNull, IndexName: indexName}
}

// Contains matches resources whose indexed string key contains keyword,
// case-insensitively. When the index name is declared a full-text field
// the evaluation is delegated to the full-text engine instead.
func Contains(indexName, keyword string) *Condition {
	return &Condition{Type: TypeContains, IndexName: indexName, Keyword: keyword}
}

// LabelExists matches resources that carry the label key.
func LabelExists(labelKey string) *Condition {
	return &Condition{Type: TypeLabelExists, LabelKey: labelKey}
}

// LabelNotExists matches resources that do not carry the label key.
func LabelNotExists(labelKey string) *Condition {
	return &Condition{Type: TypeLabelNotExists, LabelKey: labelKey}
}

// LabelEquals matches resources whose label key has exactly the value.
func LabelEquals(labelKey, labelValue string) *Condition {
	return &Condition{Type: TypeLabelEquals, LabelKey: labelKey, LabelValue: labelValue}
}

// LabelNotEquals matches resources that carry the label key with a
// different value. Resources without the key are not matched.
func LabelNotEquals(labelKey, labelValue string) *Condition {
	return &Condition{Type: TypeLabelNotEquals, LabelKey: labelKey, LabelValue: labelValue}
}

// LabelIn matches resources whose label key has one of the values.
func LabelIn(labelKey string, labelValues ...string) *Condition {
	return &Condition{Type: TypeLabelIn, LabelKey: labelKey, LabelValues: labelValues}
}

// LabelNotIn matches resources that carry the label key with a value
// outside the given set. Resources without the key are not matched.
func LabelNotIn(labelKey string, labelValues ...string) *Condition {
	return &Condition{Type: TypeLabelNotIn, LabelKey: labelKey, LabelValues: labelValues}
}
