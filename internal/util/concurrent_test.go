package util

import (
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoWorkList(t *testing.T) {
	tests := []struct {
		name          string
		input         []string
		maxConcurrent int
		want          []int
	}{
		{"keeps input order", []string{"grimoire", "demon", "spell", "edition"}, 0, []int{8, 5, 5, 7}},
		{"bounded keeps input order", []string{"grimoire", "demon", "spell", "edition"}, 2, []int{8, 5, 5, 7}},
		{"bound above length", []string{"goetia"}, 10, []int{6}},
		{"empty list", []string{}, 3, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			got := DoWorkList(tt.input, tt.maxConcurrent, func(s string) int {
				calls.Add(1)
				return len(s)
			})

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DoWorkList() = %v, want %v", got, tt.want)
			}
			if int(calls.Load()) != len(tt.input) {
				t.Errorf("work called %d times, want %d", calls.Load(), len(tt.input))
			}
		})
	}
}

func TestDoWorkList_Bounded(t *testing.T) {
	items := make([]int, 40)
	for i := range items {
		items[i] = i
	}

	var inFlight, peak atomic.Int32
	got := DoWorkList(items, 3, func(i int) int {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return i * 2
	})

	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want at most 3", peak.Load())
	}
	for i, v := range got {
		if v != i*2 {
			t.Fatalf("result[%d] = %d, want %d", i, v, i*2)
		}
	}
}
