package fluxruntime

import "math"

// Resolution shift parameters: mu is interpolated linearly between
// (baseSeqLen, baseShift) and (maxSeqLen, maxShift).
const (
	baseSeqLen = 256
	maxSeqLen  = 4096
	baseShift  = 0.5
	maxShift   = 1.15
)

// Sigmas returns the steps+1 noise levels of a flow-matching schedule, from 1 down to 0.
// With shift, intermediate levels are shifted toward 1 by an amount that grows
// with the token count of the packed latents.
func Sigmas(steps int, shift bool, seqLen int) []float64 {
	if steps < 1 {
		return nil
	}

	sigmas := make([]float64, steps+1)
	mu := ShiftMu(seqLen)
	for i := range sigmas {
		s := 1 - float64(i)/float64(steps)
		if shift && s > 0 && s < 1 {
			e := math.Exp(mu)
			s = e / (e + (1/s - 1))
		}
		sigmas[i] = s
	}
	return sigmas
}

// ShiftMu returns the time shift for a packed latent sequence length.
func ShiftMu(seqLen int) float64 {
	m := (maxShift - baseShift) / (maxSeqLen - baseSeqLen)
	b := baseShift - m*baseSeqLen
	return float64(seqLen)*m + b
}
