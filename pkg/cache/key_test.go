package cache

import "testing"

func TestKeyOrderIndependent(t *testing.T) {
	a := NewKey("history", []string{"COPEC.SN", "CHILE.SN", "CCU.SN"}, "3mo", "20241010")
	b := NewKey("history", []string{"CCU.SN", "COPEC.SN", "CHILE.SN"}, "3mo", "20241010")
	if a.String() != b.String() {
		t.Fatalf("keys differ: %q vs %q", a.String(), b.String())
	}
}

func TestKeySingleSymbolReadable(t *testing.T) {
	k := NewKey("history", []string{"SQM-B.SN"}, "1y", "20241010")
	if got := k.SymbolToken(); got != "SQM_B_SN" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := k.ArtifactPrefix(); got != "history_SQM_B_SN_1y_20241010" {
		t.Fatalf("unexpected prefix %q", got)
	}
}

func TestKeyDifferentInputsDiffer(t *testing.T) {
	base := NewKey("quote", []string{"CHILE.SN"}, "1d", "20241010")
	cases := []Key{
		NewKey("history", []string{"CHILE.SN"}, "1d", "20241010"),
		NewKey("quote", []string{"CCU.SN"}, "1d", "20241010"),
		NewKey("quote", []string{"CHILE.SN"}, "5d", "20241010"),
		NewKey("quote", []string{"CHILE.SN"}, "1d", "20241011"),
	}
	for _, k := range cases {
		if k.String() == base.String() {
			t.Fatalf("expected distinct key for %+v", k)
		}
	}
}
