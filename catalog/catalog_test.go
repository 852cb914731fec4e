package catalog

import "testing"

func TestRequiredFamiliesPresent(t *testing.T) {
	required := []string{"F0", "F1", "F2", "F3", "F4", "F7", "L0", "L4", "G0", "H7", "WL", "BlueNRG", "W7500"}
	known := map[string]bool{}
	for _, f := range Families() {
		known[f] = true
	}
	for _, want := range required {
		if !known[want] {
			t.Errorf("family %q not present in catalog", want)
		}
	}
}

func TestEveryProductIDMapsToKnownFamily(t *testing.T) {
	for id := uint16(0); id < 0x1000; id++ {
		family, ok := Lookup(id)
		if !ok {
			continue
		}
		if family == "" {
			t.Errorf("product id 0x%03X mapped to empty family", id)
		}
	}
}

func TestKnownFamilyHasRegistersOrIsExplicitlyUnknown(t *testing.T) {
	explicitlyUnknownRegisters := map[string]bool{
		"BlueNRG": true,
		"W7500":   true,
	}
	for _, family := range Families() {
		_, ok := RegistersFor(family)
		if !ok && !explicitlyUnknownRegisters[family] {
			t.Errorf("family %q has neither registers nor an explicit unknown-registers marker", family)
		}
		if ok && explicitlyUnknownRegisters[family] {
			t.Errorf("family %q is marked explicitly-unknown but has registers", family)
		}
	}
}

func TestLookupMasksHighBits(t *testing.T) {
	family, ok := Lookup(0xF412)
	if !ok || family != "F1" {
		t.Fatalf("Lookup(0xF412) = %q, %v; want F1, true", family, ok)
	}
}

func TestLookupUnknownProductID(t *testing.T) {
	if _, ok := Lookup(0xFFF); ok {
		t.Fatal("expected 0xFFF to be unknown")
	}
}
