package cmd

import (
	"reflect"
	"testing"
)

func TestParseSeeds_ValidExpressions(t *testing.T) {
	cases := []struct {
		expr string
		want []int64
	}{
		{"7", []int64{7}},
		{"0", []int64{0}},
		{"-3", []int64{-3}},
		{"0..4", []int64{0, 1, 2, 3}},
		{"0..=4", []int64{0, 1, 2, 3, 4}},
		{"-2..=1", []int64{-2, -1, 0, 1}},
		{"1,3,5", []int64{1, 3, 5}},
		{"0..2,10..=11", []int64{0, 1, 10, 11}},
		{" 4 , 6 ", []int64{4, 6}},
		{"5..=5", []int64{5}},
	}
	for _, tc := range cases {
		got, err := ParseSeeds(tc.expr)
		if err != nil {
			t.Errorf("ParseSeeds(%q): unexpected error: %v", tc.expr, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseSeeds(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestParseSeeds_InvalidExpressions(t *testing.T) {
	cases := []string{
		"",
		"abc",
		"1,,2",
		"5..",
		"..5",
		"5..5",   // half-open range with no members
		"5..=4",  // inclusive range running backwards
		"3..two",
	}
	for _, expr := range cases {
		if got, err := ParseSeeds(expr); err == nil {
			t.Errorf("ParseSeeds(%q) = %v, want error", expr, got)
		}
	}
}

func TestParseSeeds_RejectsOversizedSweep(t *testing.T) {
	_, err := ParseSeeds("0..1000000")
	if err == nil {
		t.Fatal("expected error for a million-seed sweep")
	}
}
