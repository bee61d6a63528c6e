package mail

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/iudanet/mailguard/internal/models"
)

// Partition splits emails into the ones profile sent and the ones it received.
// With no profile everything counts as received.
func Partition(emails []models.Email, profile *models.UserProfile) (sent, received []models.Email) {
	sent, received = []models.Email{}, []models.Email{}
	for _, e := range emails {
		if profile != nil && profile.Email != "" && strings.EqualFold(e.Sender, profile.Email) {
			sent = append(sent, e)
		} else {
			received = append(received, e)
		}
	}
	return sent, received
}

// Filter keeps emails whose subject or sender contains term (case-insensitive)
// and, when verdicts is not empty, whose verdict is one of them.
func Filter(emails []models.Email, term string, verdicts []models.Verdict) []models.Email {
	term = strings.ToLower(strings.TrimSpace(term))
	out := []models.Email{}
	for _, e := range emails {
		if term != "" &&
			!strings.Contains(strings.ToLower(e.Subject), term) &&
			!strings.Contains(strings.ToLower(e.Sender), term) {
			continue
		}
		if len(verdicts) > 0 && !containsVerdict(verdicts, e.Verdict()) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func containsVerdict(verdicts []models.Verdict, v models.Verdict) bool {
	for _, want := range verdicts {
		if want == v {
			return true
		}
	}
	return false
}

// Paginate returns page (1-based) of perPage items. perPage <= 0 means 10.
func Paginate[T any](items []T, page, perPage int) models.Page[T] {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 10
	}

	total := len(items)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	data := make([]T, end-start)
	copy(data, items[start:end])
	return models.Page[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}
}

// Summarize computes the dashboard totals. Detection accuracy is the mean
// scanner confidence over scanned emails, in percent.
func Summarize(emails []models.Email) models.Summary {
	var s models.Summary
	var confidence float64
	for _, e := range emails {
		if e.Scan == nil {
			s.Unscanned++
			continue
		}
		s.TotalScanned++
		confidence += e.Scan.Confidence
		switch {
		case e.Scan.Result.IsThreat():
			s.ThreatsBlocked++
		case e.Scan.Result == models.VerdictClean:
			s.CleanEmails++
		}
	}
	if s.TotalScanned > 0 {
		// confidence is a probability in [0, 1]
		mean := 100 * confidence / float64(s.TotalScanned)
		s.DetectionAccuracy = math.Round(mean*10) / 10
	}
	return s
}

// LatestThreats returns the n newest emails with a threat verdict
func LatestThreats(emails []models.Email, n int) []models.Threat {
	threats := []models.Threat{}
	for _, e := range emails {
		if !e.Verdict().IsThreat() {
			continue
		}
		threats = append(threats, models.Threat{
			ID:       e.ID,
			Subject:  e.Subject,
			Type:     e.Verdict(),
			From:     e.Sender,
			Datetime: e.CreatedAt,
		})
	}
	sort.SliceStable(threats, func(i, j int) bool {
		return threats[i].Datetime.After(threats[j].Datetime)
	})
	if n > 0 && len(threats) > n {
		threats = threats[:n]
	}
	return threats
}

// DayCount is the number of threats seen on one day
type DayCount struct {
	Date    string `json:"date"` // YYYY-MM-DD, UTC
	Threats int    `json:"threats"`
}

// ThreatsByDay counts threat-verdict emails per UTC day, oldest first.
// Days without threats inside the range are included with zero.
func ThreatsByDay(emails []models.Email) []DayCount {
	counts := map[string]int{}
	var first, last time.Time
	for _, e := range emails {
		if !e.Verdict().IsThreat() {
			continue
		}
		day := e.CreatedAt.UTC().Truncate(24 * time.Hour)
		counts[day.Format(time.DateOnly)]++
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	out := []DayCount{}
	if first.IsZero() {
		return out
	}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		out = append(out, DayCount{Date: key, Threats: counts[key]})
	}
	return out
}
