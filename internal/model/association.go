package model

import "modelql/internal/store"

// Macro is the kind of association declaration.
type Macro int

const (
	BelongsTo Macro = iota
	HasOne
	HasMany
)

func (m Macro) String() string {
	switch m {
	case BelongsTo:
		return "belongs_to"
	case HasOne:
		return "has_one"
	case HasMany:
		return "has_many"
	default:
		return "unknown"
	}
}

// Cardinality is the number of records an association yields.
type Cardinality int

const (
	One Cardinality = iota
	Many
)

// ScopeFunc narrows an association query. Owner is nil for arity-zero scopes.
type ScopeFunc func(q store.Query, owner store.Record) store.Query

// Association describes a relationship from one model to another.
//
// ForeignKey follows the usual convention: for BelongsTo it lives on the
// owner, for HasOne and HasMany it lives on the target. PrimaryKey is the key
// the foreign key points at.
type Association struct {
	Name       string
	Macro      Macro
	Target     string
	ForeignKey []string
	PrimaryKey []string

	// Polymorphic marks a BelongsTo whose target is chosen by TypeColumn on
	// the owner.
	Polymorphic bool
	// InversePolymorphic marks a HasOne/HasMany pointing at a polymorphic
	// BelongsTo; TypeColumn on the target stores the owner model name.
	InversePolymorphic bool
	TypeColumn         string

	// Through names an association on the owner whose records lead to the
	// target via the Source association on the intermediate model.
	Through string
	Source  string

	Scope      ScopeFunc
	ScopeArity int
}

// Cardinality reports whether the association yields one or many records.
func (a *Association) Cardinality() Cardinality {
	if a.Macro == HasMany {
		return Many
	}
	return One
}

// OwnerKey lists the owner attributes whose values select target records.
func (a *Association) OwnerKey() []string {
	if a.Macro == BelongsTo {
		return a.ForeignKey
	}
	return a.PrimaryKey
}

// TargetKey lists the target attributes matched against OwnerKey values.
func (a *Association) TargetKey() []string {
	if a.Macro == BelongsTo {
		return a.PrimaryKey
	}
	return a.ForeignKey
}

// Joinable reports whether owner rows can be ordered or grouped by target
// attributes through a single-row join.
func (a *Association) Joinable() bool {
	return a.Cardinality() == One && a.Through == "" && !a.Polymorphic
}

// Batchable reports whether the association can be resolved through the
// batched loader.
func (a *Association) Batchable() bool {
	if a.Polymorphic || a.InversePolymorphic || a.Through != "" {
		return false
	}
	if a.Scope != nil && a.ScopeArity != 0 {
		return false
	}
	return len(a.OwnerKey()) == 1 && len(a.TargetKey()) == 1
}
