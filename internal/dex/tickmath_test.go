package dex

import (
	"math"
	"math/big"
	"testing"
)

func TestSqrtRatioAtTickZero(t *testing.T) {
	got, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(big.Int).Lsh(big.NewInt(1), 96)
	if got.Cmp(want) != 0 {
		t.Fatalf("sqrt ratio at tick 0 = %s, want %s", got, want)
	}
}

func TestSqrtRatioAtTickBounds(t *testing.T) {
	cases := []struct {
		tick int32
		want string
	}{
		{MinTick, "4295128739"},
		{MaxTick, "1461446703485210103287273052203988822378723970342"},
	}
	for _, c := range cases {
		got, err := SqrtRatioAtTick(c.tick)
		if err != nil {
			t.Fatalf("tick %d: unexpected error: %v", c.tick, err)
		}
		if got.String() != c.want {
			t.Fatalf("tick %d: sqrt ratio = %s, want %s", c.tick, got, c.want)
		}
	}
}

func TestSqrtRatioAtTickOutOfRange(t *testing.T) {
	if _, err := SqrtRatioAtTick(MinTick - 1); err == nil {
		t.Fatal("expected error below MinTick")
	}
	if _, err := SqrtRatioAtTick(MaxTick + 1); err == nil {
		t.Fatal("expected error above MaxTick")
	}
}

func TestSqrtRatioMonotonic(t *testing.T) {
	ticks := []int32{-887272, -100000, -1000, -1, 0, 1, 1000, 100000, 887272}
	prev := new(big.Int)
	for i, tick := range ticks {
		got, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: unexpected error: %v", tick, err)
		}
		if i > 0 && got.Cmp(prev) <= 0 {
			t.Fatalf("sqrt ratio not increasing at tick %d", tick)
		}
		prev = got
	}
}

func TestAmount1Delta(t *testing.T) {
	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)
	sqrtA, err := SqrtRatioAtTick(-1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sqrtB, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := humanAmount(Amount1Delta(liquidity, sqrtA, sqrtB), 18)
	want := 1 - math.Pow(1.0001, -500)
	if math.Abs(got-want)/want > 1e-9 {
		t.Fatalf("amount1 = %v, want %v", got, want)
	}
}

func TestAmount0Delta(t *testing.T) {
	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)
	sqrtA, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sqrtB, err := SqrtRatioAtTick(1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := humanAmount(Amount0Delta(liquidity, sqrtA, sqrtB), 18)
	want := 1 - math.Pow(1.0001, -500)
	if math.Abs(got-want)/want > 1e-9 {
		t.Fatalf("amount0 = %v, want %v", got, want)
	}
}

func TestPriceAtTick(t *testing.T) {
	cases := []struct {
		tick   int32
		d0, d1 uint8
		want   float64
	}{
		{0, 18, 18, 1},
		{0, 18, 6, 1e12},
		{0, 6, 18, 1e-12},
		{6932, 18, 18, 2.0},
	}
	for _, c := range cases {
		got := PriceAtTick(c.tick, c.d0, c.d1)
		if math.Abs(got-c.want)/c.want > 1e-4 {
			t.Fatalf("price at tick %d (d0=%d d1=%d) = %v, want ~%v", c.tick, c.d0, c.d1, got, c.want)
		}
	}
}

func TestPriceFromSqrtX96(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	got := PriceFromSqrtX96(q96, 18, 6)
	if math.Abs(got-1e12)/1e12 > 1e-12 {
		t.Fatalf("price = %v, want 1e12", got)
	}
}
