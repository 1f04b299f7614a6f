package pagerange

import "testing"

func TestUnboundedHasNoLimit(t *testing.T) {
	if Unbounded.HasLimit() {
		t.Fatal("zero value Range should be unbounded")
	}
	if Unbounded.InternalFetchSize() != 0 {
		t.Fatalf("unbounded fetch size should be 0, got %d", Unbounded.InternalFetchSize())
	}
}

func TestInternalFetchSizeOverfetchesByOne(t *testing.T) {
	r := Range{Offset: 0, Size: 10}
	if r.InternalFetchSize() != 11 {
		t.Fatalf("got %d want 11", r.InternalFetchSize())
	}
}

func TestPaginateTrimsAndFlagsMore(t *testing.T) {
	r := Range{Size: 2}
	overfetched := []int{1, 2, 3}
	res := Paginate(r, overfetched)
	if !res.MoreResults {
		t.Fatal("expected MoreResults=true")
	}
	if len(res.Results) != 2 || res.Results[0] != 1 || res.Results[1] != 2 {
		t.Fatalf("unexpected trimmed results: %v", res.Results)
	}
}

func TestPaginateNoMoreWhenExactlyAtLimit(t *testing.T) {
	r := Range{Size: 3}
	res := Paginate(r, []int{1, 2, 3})
	if res.MoreResults {
		t.Fatal("expected MoreResults=false when exactly at limit")
	}
	if len(res.Results) != 3 {
		t.Fatalf("expected all 3 results, got %d", len(res.Results))
	}
}

func TestPaginateUnboundedReturnsEverything(t *testing.T) {
	res := Paginate(Unbounded, []int{1, 2, 3, 4})
	if res.MoreResults {
		t.Fatal("unbounded range should never report MoreResults")
	}
	if len(res.Results) != 4 {
		t.Fatalf("expected all 4 results, got %d", len(res.Results))
	}
}
