package linkpreview

// Aggregate applies the display policy to a complete batch of outcomes.
//
//   - no failures: every outcome is shown, no overall error.
//   - only failures, all with a common-cause type: nothing is shown and the
//     first failure message becomes the overall error.
//   - only failures, mixed causes: the failures are shown, each with its own
//     error.
//   - successes and failures: every outcome is shown, no overall error.
func Aggregate(outcomes []Outcome) (items []Outcome, overallError string) {
	if outcomes == nil {
		outcomes = []Outcome{}
	}

	var successes int
	var failures []Outcome
	for _, o := range outcomes {
		if o.OK() {
			successes++
		} else {
			failures = append(failures, o)
		}
	}

	if len(failures) == 0 || successes > 0 {
		return outcomes, ""
	}

	for _, f := range failures {
		if f.Failure == nil || !f.Failure.Type.IsCommonCause() {
			return failures, ""
		}
	}

	for _, f := range failures {
		if f.Failure.Message != "" {
			return []Outcome{}, f.Failure.Message
		}
	}
	return []Outcome{}, MessageBatchFailed
}
