package domain

// DefaultPrizeLadder is the fixed ascending reward sequence. Score k
// banks rung k-1; the ladder length caps the questions per run.
var DefaultPrizeLadder = []int64{
	10000, 20000, 30000, 50000, 100000,
	150000, 250000, 500000, 750000, 1000000,
	1500000, 2500000, 5000000, 7500000, 10000000,
	15000000, 25000000, 50000000, 75000000, 100000000,
}

// PrizeFor returns the banked amount for a score against a ladder.
// A score of zero banks nothing.
func PrizeFor(ladder []int64, score int) int64 {
	if score <= 0 || len(ladder) == 0 {
		return 0
	}
	if score > len(ladder) {
		score = len(ladder)
	}
	return ladder[score-1]
}
