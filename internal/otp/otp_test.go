package otp

import (
	"strconv"
	"testing"
)

func TestRandomGenerator_Range(t *testing.T) {
	g := RandomGenerator{}
	for i := 0; i < 500; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if !WellFormed(code) {
			t.Fatalf("code %q is not six digits", code)
		}
		n, _ := strconv.Atoi(code)
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d outside 100000..999999", n)
		}
	}
}

func TestRandomGenerator_Randomness(t *testing.T) {
	g := RandomGenerator{}
	seen := make(map[string]int)
	for i := 0; i < 100; i++ {
		code, _ := g.Generate()
		seen[code]++
	}
	if len(seen) < 95 {
		t.Errorf("only %d distinct codes out of 100", len(seen))
	}
}

func TestStatic(t *testing.T) {
	code, err := Static("123456").Generate()
	if err != nil || code != "123456" {
		t.Errorf("Static.Generate = %q, %v", code, err)
	}
}

func TestHash_Consistent(t *testing.T) {
	if Hash("123456") != Hash("123456") {
		t.Error("Hash not consistent")
	}
	if len(Hash("123456")) != 64 {
		t.Error("hash should be 64 hex chars")
	}
	if Hash("123456") == Hash("654321") {
		t.Error("different codes produced same hash")
	}
}

func TestEqual(t *testing.T) {
	stored := Hash("123456")
	tests := []struct {
		name   string
		code   string
		stored string
		want   bool
	}{
		{"match", "123456", stored, true},
		{"mismatch", "654321", stored, false},
		{"empty stored", "123456", "", false},
		{"short code", "12345", stored, false},
		{"non digit", "12345a", Hash("12345a"), false},
		{"padded", " 123456", stored, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.code, tc.stored); got != tc.want {
				t.Errorf("Equal(%q) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}
