package engine

// BatchResult aggregates independent episodes of the same configuration.
type BatchResult struct {
	Episodes     int
	Successes    int
	TotalSteps   int
	TotalBlocked int
}

// Add folds one episode result into the aggregate.
func (b *BatchResult) Add(r Result) {
	b.Episodes++
	b.TotalSteps += r.Steps
	b.TotalBlocked += r.Blocked
	if r.Outcome == OutcomeGoalReached {
		b.Successes++
	}
}

// SuccessRate returns the fraction of episodes that reached the goal.
func (b BatchResult) SuccessRate() float64 {
	if b.Episodes == 0 {
		return 0
	}
	return float64(b.Successes) / float64(b.Episodes)
}

// MeanSteps returns the average step count across episodes.
func (b BatchResult) MeanSteps() float64 {
	if b.Episodes == 0 {
		return 0
	}
	return float64(b.TotalSteps) / float64(b.Episodes)
}
