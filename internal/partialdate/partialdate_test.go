package partialdate

import "testing"

func TestFromStringPrecisions(t *testing.T) {
	cases := []struct {
		in   string
		want Precision
	}{
		{"1992", Year},
		{"1992-01", Month},
		{"1992-01-05", Day},
		{"1992-01-05T10:30:15", Sec},
		{"1992/01/05", Day},
		{"1992-01-05 10:30", Min},
		{"1992-00", Year},
		{"1992-01-00", Month},
		{"1992-00-00", Year},
	}
	for _, c := range cases {
		got, err := FromString(c.in)
		if err != nil {
			t.Fatalf("FromString(%q): %v", c.in, err)
		}
		if got.Precision() != c.want {
			t.Fatalf("FromString(%q) precision = %v, want %v", c.in, got.Precision(), c.want)
		}
	}
}

func TestFromStringRejectsEmptyAndGarbage(t *testing.T) {
	if _, err := FromString(""); err == nil {
		t.Fatal("expected error for empty string")
	}
	if _, err := FromString("not-a-date"); err == nil {
		t.Fatal("expected error for non-numeric year")
	}
}

func TestISO8601RoundTrip(t *testing.T) {
	inputs := []string{"1992", "1992-01", "1992-01-05", "1992-01-05T10:30:15"}
	for _, in := range inputs {
		p, err := FromString(in)
		if err != nil {
			t.Fatalf("FromString(%q): %v", in, err)
		}
		out := p.ToISO8601String()
		if out != in {
			t.Fatalf("round trip mismatch: in=%q out=%q", in, out)
		}
		reparsed, err := FromString(out)
		if err != nil {
			t.Fatalf("reparse %q: %v", out, err)
		}
		if !Equal(p, reparsed) {
			t.Fatalf("reparsed value not equal: %v vs %v", p, reparsed)
		}
	}
}

func TestInvalidToISO8601IsEmpty(t *testing.T) {
	var p PartialDateTime
	if p.ToISO8601String() != "" {
		t.Fatalf("expected empty string for invalid value, got %q", p.ToISO8601String())
	}
}

func TestOrderingByPrecisionAtEqualFields(t *testing.T) {
	year, _ := FromString("1992")
	month, _ := FromString("1992-01")
	if Compare(year, month) >= 0 {
		t.Fatal("expected 1992 < 1992-01")
	}
}

func TestEqualityRequiresSamePrecision(t *testing.T) {
	year, _ := FromString("1992")
	month, _ := FromString("1992-01")
	if Equal(year, month) {
		t.Fatal("1992 should not equal 1992-01 even though field values agree")
	}
	other, _ := FromString("1992")
	if !Equal(year, other) {
		t.Fatal("two identical year-precision values should be equal")
	}
}

func TestFieldAccessorsAbsentBeyondPrecision(t *testing.T) {
	p, err := FromString("1992-05")
	if err != nil {
		t.Fatalf("FromString: %v", err)
	}
	if day, ok := p.Day(); ok {
		t.Fatalf("expected day absent at month precision, got %d", day)
	}
	if month, ok := p.Month(); !ok || month != 5 {
		t.Fatalf("expected month=5 ok=true, got %d %v", month, ok)
	}
}

func TestValueScanRoundTrip(t *testing.T) {
	p, _ := FromString("1992-01-05")
	v, err := p.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var got PartialDateTime
	if err := got.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !Equal(p, got) {
		t.Fatalf("scan round trip mismatch: %v vs %v", p, got)
	}

	var invalid PartialDateTime
	invalidVal, err := invalid.Value()
	if err != nil || invalidVal != nil {
		t.Fatalf("expected nil value for invalid PartialDateTime, got %v err=%v", invalidVal, err)
	}
	var scanned PartialDateTime
	if err := scanned.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if scanned.IsValid() {
		t.Fatal("scanning nil should produce an invalid value")
	}
}
