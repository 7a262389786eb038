package worker

import "testing"

func TestCalculateBackoff(t *testing.T) {
	cases := []struct {
		retryCount int
		want       int32
	}{
		{0, 10},
		{1, 20},
		{2, 40},
		{3, 80},
		{6, 640},
		{20, 3600},
	}
	for _, c := range cases {
		if got := CalculateBackoff(c.retryCount); got != c.want {
			t.Fatalf("CalculateBackoff(%d) = %d, want %d", c.retryCount, got, c.want)
		}
	}
}

func TestCalculateBackoff_NeverExceedsCap(t *testing.T) {
	for i := 0; i < 100; i++ {
		if got := CalculateBackoff(i); got > 3600 {
			t.Fatalf("CalculateBackoff(%d) = %d exceeds the 1h cap", i, got)
		}
	}
}
