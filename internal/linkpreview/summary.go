package linkpreview

import "fmt"

// Summary counts the outcomes of a batch.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.OK() {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}

// Mixed reports whether the batch has both successes and failures.
func (s Summary) Mixed() bool {
	return s.Successful > 0 && s.Failed > 0
}

// Subtitle is the header line shown for mixed results, e.g.
// "2 successful, 1 failed". It is empty otherwise.
func (s Summary) Subtitle() string {
	if !s.Mixed() {
		return ""
	}
	return fmt.Sprintf("%d successful, %d failed", s.Successful, s.Failed)
}
