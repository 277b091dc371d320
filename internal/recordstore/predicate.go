package recordstore

import (
	"encoding/json"
	"reflect"
)

// Predicate selects documents during Find, Update and Remove. Predicates
// are built from field-equality tests combined with And/Or; there is no
// ordering, ranging or negation in this store's contract.
type Predicate interface {
	Match(doc Document) bool
}

type eqPredicate struct {
	field string
	value any
}

func (p eqPredicate) Match(doc Document) bool {
	got, ok := doc[p.field]
	if !ok {
		return false
	}
	return reflect.DeepEqual(got, p.value)
}

// Eq matches documents whose field equals value. The value is normalized
// to its JSON form, so Eq("size", 42) matches a document holding 42 from
// a reloaded file (where numbers are float64).
func Eq(field string, value any) Predicate {
	data, err := json.Marshal(value)
	if err != nil {
		// A value that cannot be marshaled can never have been stored.
		return nonePredicate{}
	}
	var norm any
	if err := json.Unmarshal(data, &norm); err != nil {
		return nonePredicate{}
	}
	return eqPredicate{field: field, value: norm}
}

type andPredicate []Predicate

func (ps andPredicate) Match(doc Document) bool {
	for _, p := range ps {
		if !p.Match(doc) {
			return false
		}
	}
	return true
}

// And matches documents satisfying every given predicate.
func And(preds ...Predicate) Predicate { return andPredicate(preds) }

type orPredicate []Predicate

func (ps orPredicate) Match(doc Document) bool {
	for _, p := range ps {
		if p.Match(doc) {
			return true
		}
	}
	return false
}

// Or matches documents satisfying at least one of the given predicates.
func Or(preds ...Predicate) Predicate { return orPredicate(preds) }

type nonePredicate struct{}

func (nonePredicate) Match(Document) bool { return false }
