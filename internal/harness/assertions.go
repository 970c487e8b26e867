package harness

import (
	"fmt"

	"github.com/roach88/mnemos/internal/card"
	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/ledger"
)

// checkAssertion validates one final-state assertion.
func checkAssertion(eng *ledger.Engine[card.Card, card.Action], a Assertion) error {
	switch a.Type {
	case "dependencies":
		return checkKeySet(a, func(key ir.Key) ir.KeySet { return eng.Dependencies(key) })

	case "dependents":
		return checkKeySet(a, func(key ir.Key) ir.KeySet { return eng.Dependents(key) })

	case "property":
		want, err := expectSet(a.Expect)
		if err != nil {
			return err
		}
		got := eng.ByProperty(a.Name, a.Value)
		return compareSets(fmt.Sprintf("property %s=%s", a.Name, a.Value), got, want)

	case "valid":
		key, err := ResolveKey(a.Key)
		if err != nil {
			return err
		}
		valid, reason := eng.ValidationStatus(key)
		want := len(a.Expect) == 1 && a.Expect[0] == "true"
		if valid != want {
			return fmt.Errorf("valid(%s): expected %t, got %t (reason %q)", a.Key, want, valid, reason)
		}
		return nil

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func checkKeySet(a Assertion, lookup func(ir.Key) ir.KeySet) error {
	key, err := ResolveKey(a.Key)
	if err != nil {
		return err
	}
	want, err := expectSet(a.Expect)
	if err != nil {
		return err
	}
	return compareSets(fmt.Sprintf("%s(%s)", a.Type, a.Key), lookup(key), want)
}

func expectSet(names yamlList) (ir.KeySet, error) {
	out := make(ir.KeySet)
	for _, name := range names {
		if name == "" {
			continue
		}
		key, err := ResolveKey(name)
		if err != nil {
			return nil, err
		}
		out.Add(key)
	}
	return out, nil
}

func compareSets(what string, got, want ir.KeySet) error {
	if len(got) == len(want) {
		same := true
		for k := range want {
			if !got.Has(k) {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}
	return fmt.Errorf("%s: expected %v, got %v", what, want.Sorted(), got.Sorted())
}
