package notify

import (
	"time"
	"unicode/utf8"

	"reverie/internal/core"
)

// Rule-based decision scoring. Each criterion contributes a fixed share:
// message presence 0.3, message length 0.3, send time 0.2, reason 0.2.
const passThreshold = 0.6

// evaluate scores a completed decision without any generative call.
func evaluate(d core.NotificationDecision) float64 {
	score := 0.0

	// A send decision must carry a message; a no-send decision must not.
	if d.ShouldSend == (d.Message != "") {
		score += 0.3
	}

	if d.Message != "" {
		switch length := utf8.RuneCountInString(d.Message); {
		case length <= 30:
			score += 0.3
		case length <= 50:
			score += 0.15
		}
	} else if !d.ShouldSend {
		score += 0.3
	}

	score += sendTimeScore(d.SendTime)

	if utf8.RuneCountInString(d.Reason) > 10 {
		score += 0.2
	}

	if score > 1 {
		score = 1
	}
	return score
}

// sendTimeScore prefers waking hours: full credit 09:00-22:59, half credit
// for the shoulder hours, none overnight. An unparsable or missing time gets
// half credit.
func sendTimeScore(sendTime string) float64 {
	if sendTime == "" {
		return 0.1
	}
	t, err := time.Parse(timeLayout, sendTime)
	if err != nil {
		if t, err = time.Parse("2006-01-02T15:04:05", sendTime); err != nil {
			return 0.1
		}
	}
	switch hour := t.Hour(); {
	case hour >= 9 && hour <= 22:
		return 0.2
	case hour >= 7 && hour < 9, hour == 23:
		return 0.1
	}
	return 0
}

// Passed reports whether a decision's evaluation score clears the pass
// threshold.
func Passed(d core.NotificationDecision) bool {
	return d.EvaluationScore >= passThreshold
}
