package main

import (
	"reflect"
	"testing"
)

func TestSplitList(t *testing.T) {
	testCases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"stun:a:1", []string{"stun:a:1"}},
		{" stun:a:1 , ,stun:b:2,", []string{"stun:a:1", "stun:b:2"}},
	}

	for _, tc := range testCases {
		if got := splitList(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitList(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
