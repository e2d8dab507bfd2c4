package index

import "testing"

func TestLabelIndex_SelectorPredicates(t *testing.T) {
	idx := newLabelIndex()
	idx.insert("a", map[string]string{"env": "prod", "tier": "api"})
	idx.insert("b", map[string]string{"env": "dev"})
	idx.insert("c", nil)

	assertSet(t, idx.exists("env"), "a", "b")
	assertSet(t, idx.exists("tier"), "a")
	if set := idx.exists("absent"); set.Len() != 0 {
		t.Errorf("exists(absent): %v", keysOf(set))
	}

	assertSet(t, idx.equal("env", "prod"), "a")
	assertSet(t, idx.in("env", []string{"prod", "dev"}), "a", "b")

	// Resources without the key are not matched by the Not variants.
	assertSet(t, idx.notEqual("env", "prod"), "b")
	assertSet(t, idx.notIn("env", []string{"prod"}), "b")
	if set := idx.notEqual("tier", "api"); set.Len() != 0 {
		t.Errorf("notEqual must exclude pks missing the key: %v", keysOf(set))
	}

	assertSet(t, idx.allPrimaryKeys(), "a", "b", "c")
}

func TestLabelIndex_KeyRangeDoesNotBleed(t *testing.T) {
	// "env" and "environment" share a prefix; the range scan must stop at
	// the exact key.
	idx := newLabelIndex()
	idx.insert("a", map[string]string{"env": "prod"})
	idx.insert("b", map[string]string{"environment": "prod"})

	assertSet(t, idx.exists("env"), "a")
	assertSet(t, idx.notEqual("env", "x"), "a")
}

func TestLabelIndex_PopulationInvariant(t *testing.T) {
	idx := newLabelIndex()

	idx.insert("a", map[string]string{"env": "prod"})
	idx.insert("b", nil)
	idx.insert("c", map[string]string{"env": "dev", "tier": "web"})
	assertSet(t, idx.allPrimaryKeys(), "a", "b", "c")

	// Update: labeled -> unlabeled and back.
	idx.insert("a", nil)
	assertSet(t, idx.allPrimaryKeys(), "a", "b", "c")
	if idx.exists("env").Contains("a") {
		t.Error("a kept its labels across an unlabeling update")
	}
	idx.insert("b", map[string]string{"env": "prod"})
	assertSet(t, idx.allPrimaryKeys(), "a", "b", "c")
	assertSet(t, idx.equal("env", "prod"), "b")

	// Delete drops the pk from the population entirely.
	idx.remove("c")
	assertSet(t, idx.allPrimaryKeys(), "a", "b")
	if idx.exists("tier").Len() != 0 {
		t.Error("deleted pk still visible through exists")
	}
	if idx.forward.Len() != 1 {
		t.Errorf("forward entries: got %d, want 1", idx.forward.Len())
	}
}

func TestLabelIndex_LabelValueReplacement(t *testing.T) {
	idx := newLabelIndex()
	idx.insert("a", map[string]string{"env": "dev"})
	idx.insert("a", map[string]string{"env": "prod"})

	assertSet(t, idx.equal("env", "prod"), "a")
	if idx.equal("env", "dev").Len() != 0 {
		t.Error("stale label value after update")
	}
}
