package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/iudanet/mailguard/internal/client/mail"
	"github.com/iudanet/mailguard/internal/models"
)

// fetchLimit is how many emails a listing pulls before client-side paging.
// The backend rejects list queries above 100.
const fetchLimit = 100

func (c *Cli) runList(ctx context.Context, folder models.Folder, args []string) error {
	fs := flag.NewFlagSet(string(folder), flag.ContinueOnError)
	fs.SetOutput(c.io)
	page := fs.Int("page", 1, "page number")
	perPage := fs.Int("per-page", 10, "emails per page")
	search := fs.String("search", "", "match subject or sender")
	verdicts := fs.String("verdict", "", "comma separated verdicts: clean,suspicious,malicious,dangerous,unknown")
	offline := fs.Bool("offline", false, "read from the local cache")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var emails []models.Email
	var err error
	if *offline {
		if c.cache == nil {
			return fmt.Errorf("offline mode needs the email cache (--cache)")
		}
		emails, err = c.cache.List(ctx, folder, 0, 0)
	} else {
		emails, err = c.mail.Emails(ctx, folder, fetchLimit, 0)
	}
	if err != nil {
		return err
	}

	filtered := mail.Filter(emails, *search, parseVerdicts(*verdicts))
	result := mail.Paginate(filtered, *page, *perPage)

	title := "Inbox"
	if folder == models.FolderSent {
		title = "Sent"
	}
	if *offline {
		title += " (offline)"
	}
	c.io.Printf("=== %s ===\n", title)
	c.io.Println()

	if result.Total == 0 {
		c.io.Println("No emails found.")
		return nil
	}

	tw := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tDATE\tFROM\tTO\tSUBJECT\tVERDICT")
	for _, e := range result.Data {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.Sender, e.Recipient, truncate(e.Subject, 40), verdictLabel(e))
	}
	_ = tw.Flush()

	c.io.Println()
	c.io.Printf("Page %d of %d (%d emails)\n", result.Page, result.TotalPages, result.Total)
	return nil
}

func (c *Cli) runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(c.io)
	offline := fs.Bool("offline", false, "read from the local cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mailguard show [--offline] ID")
	}
	id := fs.Arg(0)

	if *offline && c.cache == nil {
		return fmt.Errorf("offline mode needs the email cache (--cache)")
	}

	for _, folder := range []models.Folder{models.FolderInbox, models.FolderSent} {
		var emails []models.Email
		var err error
		if *offline {
			emails, err = c.cache.List(ctx, folder, 0, 0)
		} else {
			emails, err = c.mail.Emails(ctx, folder, fetchLimit, 0)
		}
		if err != nil {
			return err
		}
		for _, e := range emails {
			if e.ID == id {
				c.printEmail(e)
				return nil
			}
		}
	}
	return fmt.Errorf("email not found: %s", id)
}

func (c *Cli) printEmail(e models.Email) {
	c.io.Printf("=== %s ===\n", e.Subject)
	c.io.Println()
	c.io.Printf("ID:      %s\n", e.ID)
	c.io.Printf("From:    %s\n", e.Sender)
	c.io.Printf("To:      %s\n", e.Recipient)
	c.io.Printf("Date:    %s\n", e.CreatedAt.Format("2006-01-02 15:04"))
	c.io.Printf("Verdict: %s\n", verdictLabel(e))
	c.io.Println()
	c.io.Println(e.Body)
}

func (c *Cli) runScans(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scans", flag.ContinueOnError)
	fs.SetOutput(c.io)
	limit := fs.Int("limit", mail.DefaultLimit, "number of scan logs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logs, err := c.mail.ScanLogs(ctx, *limit, 0)
	if err != nil {
		return err
	}

	c.io.Println("=== Scan Logs ===")
	c.io.Println()
	if len(logs) == 0 {
		c.io.Println("No scans yet.")
		return nil
	}

	tw := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tDATE\tRESULT\tCONFIDENCE\tSUBJECT")
	for _, l := range logs {
		subject := ""
		if l.Email != nil {
			subject = truncate(l.Email.Subject, 40)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%s\n",
			l.ID, l.CreatedAt.Format("2006-01-02 15:04"), l.Result, l.Confidence*100, subject)
	}
	_ = tw.Flush()
	return nil
}

func (c *Cli) runThreats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("threats", flag.ContinueOnError)
	fs.SetOutput(c.io)
	limit := fs.Int("limit", 5, "number of threats to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	emails, err := c.mail.Emails(ctx, models.FolderInbox, fetchLimit, 0)
	if err != nil {
		return err
	}

	c.io.Println("=== Latest Threats ===")
	c.io.Println()

	threats := mail.LatestThreats(emails, *limit)
	if len(threats) == 0 {
		c.io.Println("✓ No threats detected.")
		return nil
	}

	tw := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DATE\tTYPE\tFROM\tSUBJECT")
	for _, t := range threats {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			t.Datetime.Format("2006-01-02 15:04"), strings.ToUpper(string(t.Type)), t.From, truncate(t.Subject, 40))
	}
	_ = tw.Flush()

	c.io.Println()
	c.io.Println("Threats per day:")
	for _, d := range mail.ThreatsByDay(emails) {
		c.io.Printf("  %s %s %d\n", d.Date, strings.Repeat("█", d.Threats), d.Threats)
	}
	return nil
}

func (c *Cli) runSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(c.io)
	if err := fs.Parse(args); err != nil {
		return err
	}

	emails, err := c.mail.Emails(ctx, models.FolderInbox, fetchLimit, 0)
	if err != nil {
		return err
	}
	s := mail.Summarize(emails)

	c.io.Println("=== Summary ===")
	c.io.Println()
	c.io.Printf("Total scanned:      %d\n", s.TotalScanned)
	c.io.Printf("Threats blocked:    %d\n", s.ThreatsBlocked)
	c.io.Printf("Clean emails:       %d\n", s.CleanEmails)
	c.io.Printf("Awaiting scan:      %d\n", s.Unscanned)
	c.io.Printf("Detection accuracy: %.1f%%\n", s.DetectionAccuracy)

	// без профиля всё считается входящими
	sent, received := mail.Partition(emails, c.mail.Profile(ctx))
	c.io.Printf("Received / sent:    %d / %d\n", len(received), len(sent))
	return nil
}

func (c *Cli) runSend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(c.io)
	to := fs.String("to", "", "recipient address")
	subject := fs.String("subject", "", "subject")
	body := fs.String("body", "", "body, prompted when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *to == "" {
		v, err := c.io.ReadInput("To: ")
		if err != nil {
			return fmt.Errorf("failed to read recipient: %w", err)
		}
		*to = v
	}
	if *subject == "" {
		v, err := c.io.ReadInput("Subject: ")
		if err != nil {
			return fmt.Errorf("failed to read subject: %w", err)
		}
		*subject = v
	}
	if *body == "" {
		v, err := c.io.ReadInput("Body: ")
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		*body = v
	}

	resp, err := c.mail.Send(ctx, *to, *subject, *body)
	if err != nil {
		return err
	}

	c.io.Println("✓ Email sent successfully")
	if resp.Email != nil {
		c.io.Printf("ID: %s\n", resp.Email.ID)
		if resp.Email.Scan != nil {
			c.io.Printf("Scan: %s\n", verdictLabel(*resp.Email))
		}
	}
	return nil
}

func parseVerdicts(s string) []models.Verdict {
	var out []models.Verdict
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		out = append(out, models.ParseVerdict(part))
	}
	return out
}

func verdictLabel(e models.Email) string {
	if e.Scan == nil {
		return "pending"
	}
	label := string(e.Scan.Result)
	if e.Scan.Result.IsThreat() {
		label = "⚠ " + strings.ToUpper(label)
	}
	return fmt.Sprintf("%s (%.0f%%)", label, e.Scan.Confidence*100)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
