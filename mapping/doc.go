// Package mapping turns one parsed source JSON record into a record.Record
// through an ordered list of rules.
//
// Each Rule names a target key (predicate IRI, @-field, !-marker or
// #-embedded key), an extraction function and a cardinality. Rules run in
// declaration order and write into a single accumulator:
//
//	m, err := mapping.NewMapper([]mapping.Rule{
//		{Key: record.KeyID, Extract: mapping.Required("$.profileId"), Single: true},
//		{Key: record.KeyIDNS, Extract: mapping.Const(harvest.PersonNamespace)},
//		{Key: record.KeyType, Extract: mapping.Const(harvest.ClassPerson)},
//		{Key: record.DeleteKey(harvest.PrefLabel), Extract: mapping.Delete()},
//		{Key: harvest.PrefLabel, Extract: mapping.Path("$.displayName"), Single: true},
//	})
//
// A rule that returns ErrSkipRecord (usually through Skip or Required) drops
// the whole source record. Any other error propagates to the caller.
package mapping
