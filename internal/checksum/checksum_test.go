package checksum

import "testing"

func TestSum(t *testing.T) {
	got := Sum([]byte("didact"))
	if len(got) != 64 {
		t.Fatalf("len = %d", len(got))
	}
	if Sum([]byte("didact")) != got {
		t.Error("sum is not stable")
	}
}

func TestSameAndMatches(t *testing.T) {
	if !Same([]byte("a"), []byte("a")) || Same([]byte("a"), []byte("b")) {
		t.Error("Same")
	}
	if !Matches([]byte("a"), Sum([]byte("a"))) {
		t.Error("Matches should accept its own sum")
	}
	if Matches([]byte("a"), "") {
		t.Error("empty sum never matches")
	}
}
