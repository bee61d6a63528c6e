package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Folder partitions a mailbox
type Folder string

const (
	FolderInbox Folder = "inbox"
	FolderSent  Folder = "sent"
)

// Verdict is the scanner's classification of an email.
// The canonical set is clean, suspicious, malicious, dangerous.
type Verdict string

const (
	VerdictClean      Verdict = "clean"
	VerdictSuspicious Verdict = "suspicious"
	VerdictMalicious  Verdict = "malicious"
	VerdictDangerous  Verdict = "dangerous"
	VerdictUnknown    Verdict = "unknown"
)

// ParseVerdict normalizes a verdict string. Older backends reported "safe",
// which is read as clean.
func ParseVerdict(s string) Verdict {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clean", "safe":
		return VerdictClean
	case "suspicious":
		return VerdictSuspicious
	case "malicious":
		return VerdictMalicious
	case "dangerous":
		return VerdictDangerous
	default:
		return VerdictUnknown
	}
}

func (v *Verdict) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*v = ParseVerdict(s)
	return nil
}

// IsThreat reports whether the verdict should be surfaced as a threat
func (v Verdict) IsThreat() bool {
	return v == VerdictSuspicious || v == VerdictMalicious || v == VerdictDangerous
}

// Scan is the scan attached to an email
type Scan struct {
	Result     Verdict `json:"result"`
	Confidence float64 `json:"confidence"`
}

// Email is a message as returned by myEmails
type Email struct {
	ID        ID        `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body,omitempty"`
	Folder    Folder    `json:"folder,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Scan      *Scan     `json:"scan,omitempty"` // nil until scanned
}

// Verdict returns the scan verdict or VerdictUnknown when not yet scanned
func (e *Email) Verdict() Verdict {
	if e.Scan == nil {
		return VerdictUnknown
	}
	return e.Scan.Result
}

// ScanLog is a row of myScanLogs
type ScanLog struct {
	ID         ID        `json:"id"`
	Result     Verdict   `json:"result"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
	Email      *Email    `json:"email,omitempty"`
}

// Threat is a condensed view of a dangerous email
type Threat struct {
	ID       ID        `json:"id"`
	Subject  string    `json:"subject"`
	Type     Verdict   `json:"type"`
	From     string    `json:"from"`
	Datetime time.Time `json:"datetime"`
}

// Summary aggregates dashboard metrics over a set of emails
type Summary struct {
	TotalScanned      int     `json:"totalScanned"`
	ThreatsBlocked    int     `json:"threatsBlocked"`
	CleanEmails       int     `json:"cleanEmails"`
	DetectionAccuracy float64 `json:"detectionAccuracy"` // mean scanner confidence, percent
	Unscanned         int     `json:"unscanned"`
}

// Page is one page of a client-side paginated listing
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}
