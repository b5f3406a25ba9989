// Package collatz evaluates 3x+1 trajectories over arbitrary-precision
// integers.
package collatz

import (
	"errors"
	"math/big"
)

// DefaultStepCutoff bounds a single trajectory. Hitting it is a divergence
// guard, not evidence that the trajectory diverges.
const DefaultStepCutoff int64 = 100000

// ErrNotPositive is returned for inputs below 1.
var ErrNotPositive = errors.New("collatz: input must be a positive integer")

// ErrInvalidCutoff is returned for a step cutoff below 1.
var ErrInvalidCutoff = errors.New("collatz: step cutoff must be positive")

var one = big.NewInt(1)

// Result is the outcome of one trajectory.
type Result struct {
	Steps  int64    // steps taken until reaching 1 or the cutoff
	Peak   *big.Int // largest value seen, including the input itself
	Cutoff int64    // the cutoff the trajectory ran under

	// Reached is true when the trajectory ended at 1. A trajectory that
	// reaches 1 on exactly the cutoff step counts as reached.
	Reached bool
}

// CutoffReached reports whether the trajectory stopped at the step cutoff
// rather than at 1.
func (r Result) CutoffReached() bool {
	return !r.Reached
}

// Evaluate runs n through n/2 (even) or 3n+1 (odd) until it reaches 1 or
// cutoff steps have been taken. n is not modified.
//
// Evaluate(1) is (0, 1). A cutoff hit returns the partial steps and peak
// with a nil error; callers distinguish it with Result.CutoffReached.
func Evaluate(n *big.Int, cutoff int64) (Result, error) {
	if cutoff < 1 {
		return Result{}, ErrInvalidCutoff
	}
	if n == nil || n.Sign() <= 0 {
		return Result{}, ErrNotPositive
	}

	cur := new(big.Int).Set(n)
	peak := new(big.Int).Set(n)
	tmp := new(big.Int)
	var steps int64

	for cur.Cmp(one) != 0 {
		if cur.Bit(0) == 0 {
			cur.Rsh(cur, 1)
		} else {
			// 3n+1 = (n<<1) + n + 1
			tmp.Lsh(cur, 1)
			cur.Add(cur, tmp)
			cur.Add(cur, one)
			if cur.Cmp(peak) > 0 {
				peak.Set(cur)
			}
		}
		steps++

		if steps >= cutoff && cur.Cmp(one) != 0 {
			break
		}
	}

	return Result{Steps: steps, Peak: peak, Cutoff: cutoff, Reached: cur.Cmp(one) == 0}, nil
}
