package ids

import "testing"

func TestInvalidIsZero(t *testing.T) {
	if Invalid[TrackKind]().IsValid() {
		t.Fatal("zero id should be invalid")
	}
	if !New[TrackKind](1).IsValid() {
		t.Fatal("non-zero id should be valid")
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	id := New[ArtistKind](42)
	s := id.String()
	got, err := Parse[ArtistKind](s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != id {
		t.Fatalf("round trip mismatch: got %v want %v", got, id)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse[ArtistKind]("not-a-number"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	id := New[ReleaseKind](7)
	data, err := id.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(data) != `"7"` {
		t.Fatalf("unexpected json: %s", data)
	}
	var got Id[ReleaseKind]
	if err := got.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if got != id {
		t.Fatalf("json round trip mismatch: got %v want %v", got, id)
	}
}

func TestDistinctKindsAreNotAssignable(t *testing.T) {
	// This is primarily a compile-time property; at runtime we can at
	// least confirm two different kinds with the same raw value behave
	// independently of one another.
	a := New[ArtistKind](5)
	tr := New[TrackKind](5)
	if a.Raw() != tr.Raw() {
		t.Fatal("expected equal raw values across kinds")
	}
}

func TestScanValue(t *testing.T) {
	var id Id[TrackKind]
	if err := id.Scan(int64(99)); err != nil {
		t.Fatalf("Scan int64: %v", err)
	}
	if id.Raw() != 99 {
		t.Fatalf("got %d want 99", id.Raw())
	}

	if err := id.Scan([]byte("123")); err != nil {
		t.Fatalf("Scan []byte: %v", err)
	}
	if id.Raw() != 123 {
		t.Fatalf("got %d want 123", id.Raw())
	}

	if err := id.Scan(nil); err != nil {
		t.Fatalf("Scan nil: %v", err)
	}
	if id.IsValid() {
		t.Fatal("scanning nil should produce an invalid id")
	}

	if err := id.Scan("bogus"); err == nil {
		t.Fatal("expected error scanning unsupported type")
	}

	v, err := New[TrackKind](55).Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v.(int64) != 55 {
		t.Fatalf("got %v want 55", v)
	}
}

func TestIdRangeValidity(t *testing.T) {
	r := IdRange[TrackKind]{First: New[TrackKind](3), Last: New[TrackKind](7)}
	if !r.IsValid() {
		t.Fatal("expected valid range")
	}
	if r.Count() != 5 {
		t.Fatalf("got count %d want 5", r.Count())
	}

	empty := IdRange[TrackKind]{}
	if empty.IsValid() {
		t.Fatal("zero range should be invalid")
	}
	if empty.Count() != 0 {
		t.Fatalf("empty range count should be 0, got %d", empty.Count())
	}

	backwards := IdRange[TrackKind]{First: New[TrackKind](9), Last: New[TrackKind](2)}
	if backwards.IsValid() {
		t.Fatal("first > last should be invalid")
	}
}
