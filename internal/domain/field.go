package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Field is a professional domain partition of the problem catalog.
type Field string

const (
	FieldSWE Field = "SWE" // software engineering
	FieldQF  Field = "QF"  // quantitative finance
	FieldIB  Field = "IB"  // investment banking
)

// DefaultField is used when a caller does not name a field.
const DefaultField = FieldSWE

// Category is a topic tag within a field's taxonomy.
type Category string

// SWE categories
const (
	CategoryArrays             Category = "Arrays"
	CategoryStrings            Category = "Strings"
	CategoryTrees              Category = "Trees"
	CategoryGraphs             Category = "Graphs"
	CategoryDynamicProgramming Category = "Dynamic Programming"
	CategorySystemDesign       Category = "System Design"
	CategoryLinkedLists        Category = "Linked Lists"
)

// QF categories
const (
	CategoryProbability        Category = "Probability"
	CategoryStatistics         Category = "Statistics"
	CategoryStochasticCalculus Category = "Stochastic Calculus"
	CategoryBrainTeasers       Category = "Brain Teasers"
	CategoryMentalMath         Category = "Mental Math"
	CategoryOptions            Category = "Options"
	CategoryMarketMaking       Category = "Market Making"
)

// IB categories
const (
	CategoryValuation           Category = "Valuation"
	CategoryDCF                 Category = "DCF"
	CategoryLBO                 Category = "LBO"
	CategoryMergers             Category = "M&A"
	CategoryAccounting          Category = "Accounting"
	CategoryBehavioral          Category = "Behavioral"
	CategoryFinancialStatements Category = "Financial Statements"
)

var taxonomy = map[Field][]Category{
	FieldSWE: {
		CategoryArrays,
		CategoryStrings,
		CategoryTrees,
		CategoryGraphs,
		CategoryDynamicProgramming,
		CategorySystemDesign,
		CategoryLinkedLists,
	},
	FieldQF: {
		CategoryProbability,
		CategoryStatistics,
		CategoryStochasticCalculus,
		CategoryBrainTeasers,
		CategoryMentalMath,
		CategoryOptions,
		CategoryMarketMaking,
	},
	FieldIB: {
		CategoryValuation,
		CategoryDCF,
		CategoryLBO,
		CategoryMergers,
		CategoryAccounting,
		CategoryBehavioral,
		CategoryFinancialStatements,
	},
}

// Fields returns all known fields in a stable order.
func Fields() []Field {
	return []Field{FieldSWE, FieldQF, FieldIB}
}

// ParseField parses a field name case-insensitively.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToUpper(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidField, s)
	}
	return f, nil
}

// FieldOrDefault parses s, returning DefaultField for an empty string.
func FieldOrDefault(s string) (Field, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultField, nil
	}
	return ParseField(s)
}

// Valid reports whether f is one of the known fields.
func (f Field) Valid() bool {
	_, ok := taxonomy[f]
	return ok
}

// Categories returns the field's taxonomy in declaration order.
// The returned slice is a copy and may be modified by the caller.
func (f Field) Categories() []Category {
	return slices.Clone(taxonomy[f])
}

// HasCategory reports whether c belongs to the field's taxonomy.
func (f Field) HasCategory(c Category) bool {
	return slices.Contains(taxonomy[f], c)
}

// FieldOf returns the field whose taxonomy contains c.
func FieldOf(c Category) (Field, bool) {
	for _, f := range Fields() {
		if f.HasCategory(c) {
			return f, true
		}
	}
	return "", false
}

func (f Field) String() string { return string(f) }

func (c Category) String() string { return string(c) }
