package util

import (
	"math"
	"strings"
	"time"

	"golang.org/x/exp/rand"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// DefaultSeed is used when a caller does not supply one.
const DefaultSeed uint64 = 20230117

// NewSource returns a seeded random source. Two sources built from the same
// seed produce identical streams.
func NewSource(seed uint64) rand.Source {
	return rand.NewSource(seed)
}

// Seeds draws n stream seeds from src, in order. Workers seeded this way are
// independent of scheduling: stream i always receives the i-th draw.
func Seeds(src rand.Source, n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = mix(src.Uint64())
	}
	return out
}

// splitmix64 finaliser, decorrelates consecutive seeds
func mix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// RandomString generates a random lowercase string of length n
func RandomString(r *rand.Rand, n int) string {
	var sb strings.Builder
	k := len(alphabet)

	for i := 0; i < n; i++ {
		c := alphabet[r.Intn(k)]
		sb.WriteByte(c)
	}

	return sb.String()
}

// RandomTicker generates a random upper case ticker
func RandomTicker(r *rand.Rand) string {
	return strings.ToUpper(RandomString(r, 4))
}

// RandomPrices generates n daily closes following a discretised GBM with the
// given daily drift and volatility, starting at s0 on start and skipping
// weekends.
func RandomPrices(r *rand.Rand, start time.Time, n int, s0, mu, sigma float64) ([]time.Time, []float64) {
	dates := make([]time.Time, n)
	px := make([]float64, n)
	d := AdjustFollowing(start, nil)
	s := s0
	for i := 0; i < n; i++ {
		dates[i] = d
		px[i] = s
		s *= math.Exp(mu - 0.5*sigma*sigma + sigma*r.NormFloat64())
		d = AdjustFollowing(d.AddDate(0, 0, 1), nil)
	}
	return dates, px
}
