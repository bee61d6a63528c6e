// Package scanner is the keyword scanner used by the dev server in place of
// the real classifier
package scanner

import (
	"math"
	"strings"

	"github.com/iudanet/mailguard/internal/models"
)

// markers that push an email towards a threat verdict
var markers = []string{
	"bitcoin",
	"click here",
	"password",
	"prize",
	"urgent",
	"verify your account",
	"wire transfer",
	"winner",
	".exe",
}

// Scan classifies subject and body. Confidence is in [0, 1], two decimals.
func Scan(subject, body string) models.Scan {
	text := strings.ToLower(subject + " " + body)

	hits := 0
	for _, m := range markers {
		if strings.Contains(text, m) {
			hits++
		}
	}

	var result models.Verdict
	var confidence float64
	switch {
	case hits == 0:
		result, confidence = models.VerdictClean, 0.95
	case hits == 1:
		result, confidence = models.VerdictSuspicious, 0.6
	case hits == 2:
		result, confidence = models.VerdictMalicious, 0.8
	default:
		result = models.VerdictDangerous
		confidence = math.Min(0.99, 0.8+0.05*float64(hits-2))
	}
	return models.Scan{Result: result, Confidence: math.Round(confidence*100) / 100}
}
