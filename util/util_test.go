package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestSeedsDeterministic(t *testing.T) {
	a := Seeds(NewSource(42), 8)
	b := Seeds(NewSource(42), 8)
	c := Seeds(NewSource(43), 8)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)

	seen := map[uint64]bool{}
	for _, s := range a {
		require.False(t, seen[s])
		seen[s] = true
	}
}

func TestRandomPrices(t *testing.T) {
	r := rand.New(NewSource(7))
	start, _ := time.Parse(Layout, "2024-01-06") // Saturday
	dates, px := RandomPrices(r, start, 50, 100, 0.0005, 0.01)
	require.Len(t, dates, 50)
	require.Len(t, px, 50)
	require.Equal(t, 100.0, px[0])
	require.Equal(t, time.Monday, dates[0].Weekday())
	for i := 1; i < len(dates); i++ {
		require.True(t, dates[i].After(dates[i-1]))
		require.True(t, IsWeekday(dates[i]))
		require.Greater(t, px[i], 0.0)
	}
	require.Len(t, RandomTicker(r), 4)
}

func TestBusinessDates(t *testing.T) {
	hols, err := Hols(NYSE)
	require.NoError(t, err)

	start, _ := time.Parse(Layout, "2024-12-23")
	end, _ := time.Parse(Layout, "2025-01-03")
	dates, err := ListBusinessDates(start, end, hols)
	require.NoError(t, err)
	// 23,24,26,27,30,31 Dec and 2,3 Jan
	require.Len(t, dates, 8)
	require.False(t, IsHol(dates[2], hols))

	_, err = ListBusinessDates(end, start, hols)
	require.Error(t, err)

	steps := StepDates(start, 4, hols)
	require.Len(t, steps, 5)
	require.Equal(t, "2024-12-26", steps[2].Format(Layout))
}
