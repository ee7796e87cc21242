package permission

import (
	"errors"
	"strings"
	"testing"
)

func TestCatalogKeysBelongToKnownGroups(t *testing.T) {
	known := make(map[string]bool)
	for _, g := range Groups() {
		known[g.ID] = true
	}

	for _, e := range Catalog() {
		if !known[e.Group] {
			t.Fatalf("entry %q references unknown group %q", e.Key, e.Group)
		}
		if e.Key == "" || e.Name == "" {
			t.Fatalf("entry %+v missing key or name", e)
		}
	}
}

func TestCatalogHasNoDuplicateKeys(t *testing.T) {
	seen := make(map[string]bool)
	for _, e := range Catalog() {
		if seen[e.Key] {
			t.Fatalf("duplicate catalog key %q", e.Key)
		}
		seen[e.Key] = true
	}
}

func TestKnown(t *testing.T) {
	if !Known("sensor_add") {
		t.Fatal("sensor_add should be in the catalog")
	}
	if Known("sensor_teleport") {
		t.Fatal("sensor_teleport should not be in the catalog")
	}
}

func TestValidateKeysReportsEveryUnknownKey(t *testing.T) {
	err := ValidateKeys([]string{"user_view", "bogus_one", "zone_add", "bogus_two"})
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	if !strings.Contains(err.Error(), "bogus_one") || !strings.Contains(err.Error(), "bogus_two") {
		t.Fatalf("error must name every unknown key: %v", err)
	}
}

func TestValidateKeysAcceptsCatalogKeys(t *testing.T) {
	keys := make([]string, 0, len(Catalog()))
	for _, e := range Catalog() {
		keys = append(keys, e.Key)
	}
	if err := ValidateKeys(keys); err != nil {
		t.Fatalf("full catalog should validate: %v", err)
	}
	if err := ValidateKeys(nil); err != nil {
		t.Fatalf("empty key list should validate: %v", err)
	}
}
