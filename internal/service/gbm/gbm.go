// Package gbm implements a Geometric Brownian Motion price generator.
// It is the terminal fallback of the quote resolution chain: total for
// any positive seed price, deterministic given a supplied random source.
package gbm

import "math"

// Source supplies uniform samples in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NextPrice advances a price one GBM step:
//
//	next = current * exp(drift*dt + volatility*sqrt(dt)*Z)
//
// with Z a standard normal drawn from src via Box-Muller. Drift and
// volatility are annualized; dt is in years. dt <= 0 yields the current
// price unchanged. current <= 0 is a caller error; the chain always
// seeds with a positive base price.
func NextPrice(src Source, current, drift, volatility, dt float64) float64 {
	if dt <= 0 {
		return current
	}
	z := normal(src)
	return current * math.Exp(drift*dt+volatility*math.Sqrt(dt)*z)
}

// PricePath generates a finite path of steps prices starting from (and
// excluding) start. Each call recomputes the path from src; nothing is
// cached between calls.
func PricePath(src Source, start float64, steps int, drift, volatility, dt float64) []float64 {
	if steps <= 0 {
		return nil
	}
	path := make([]float64, steps)
	p := start
	for i := 0; i < steps; i++ {
		p = NextPrice(src, p, drift, volatility, dt)
		path[i] = p
	}
	return path
}

// normal transforms two independent uniforms into one standard normal
// sample (Box-Muller).
func normal(src Source) float64 {
	u1 := src.Float64()
	for u1 == 0 {
		u1 = src.Float64()
	}
	u2 := src.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
