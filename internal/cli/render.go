package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"talentmatch-client/internal/config"
	"talentmatch-client/internal/model"
	"talentmatch-client/internal/session"
)

const cellWidth = 40

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

type table struct {
	w *tabwriter.Writer
}

func (t *table) line(format string, args ...any) {
	fmt.Fprintf(t.w, format+"\n", args...)
}

func (t *table) row(cells ...string) {
	fmt.Fprintln(t.w, strings.Join(cells, "\t"))
}

func (t *table) raw(s string) {
	// Flush first so the banner is not column aligned.
	_ = t.w.Flush()
	fmt.Fprint(t.w, s)
}

// render writes v as JSON or lets fn draw it as a table.
func (c *CLI) render(v any, fn func(t *table)) error {
	switch c.format {
	case config.OutputTable, config.OutputJSON:
	default:
		return fmt.Errorf("%w: unsupported output format %q", model.ErrInvalidInput, c.format)
	}

	if c.format == config.OutputJSON {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	t := &table{w: newTable(c.stdout)}
	fn(t)
	return t.w.Flush()
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func renderStatus(t *table, status session.Status) {
	t.row("Authenticated:", yesNo(status.Authenticated))
	if !status.Authenticated {
		return
	}
	t.row("Username:", orDash(status.Username))
	t.row("User ID:", orDash(status.Subject))
	t.row("Refresh token:", yesNo(status.HasRefreshToken))
	if status.ExpiresAt.IsZero() {
		t.row("Access expires:", "unknown")
		return
	}
	expires := formatTime(status.ExpiresAt)
	if status.Expired {
		expires += " (expired, refreshed on next request)"
	}
	t.row("Access expires:", expires)
}

func renderUploads(t *table, results []model.UploadResult) {
	t.row("FILE", "STATUS", "RESUME", "CHARS", "MESSAGE")
	for _, result := range results {
		id, chars := "-", "-"
		if result.Resume != nil {
			id = result.Resume.ID
			chars = strconv.Itoa(result.ExtractedChars)
		}
		t.row(result.File, result.Status, id, chars, truncate(result.Message, 60))
	}
}

func renderResumes(t *table, page model.Page[model.ResumeSummary]) {
	if len(page.Results) == 0 {
		t.line("No resumes found.")
		return
	}

	t.row("ID", "NAME", "EMAIL", "SKILLS", "UPLOADED")
	for _, resume := range page.Results {
		t.row(resume.ID, orDash(resume.Name), orDash(resume.Email), orDash(truncate(resume.Skills, cellWidth)), formatTime(resume.CreatedAt))
	}
	t.line("Showing %d of %d", len(page.Results), page.Count)
}

func renderResume(t *table, resume *model.Resume) {
	t.row("ID:", resume.ID)
	t.row("Name:", orDash(resume.Name))
	t.row("Email:", orDash(resume.Email))
	t.row("Phone:", orDash(resume.Phone))
	t.row("File:", orDash(resume.File))
	t.row("Skills:", orDash(resume.Skills))
	t.row("Experience:", orDash(truncate(resume.Experience, 200)))
	t.row("Education:", orDash(truncate(resume.Education, 200)))
	t.row("Uploaded:", formatTime(resume.CreatedAt))
}

func renderJobs(t *table, page model.Page[model.JobSummary]) {
	if len(page.Results) == 0 {
		t.line("No jobs found.")
		return
	}

	t.row("ID", "TITLE", "COMPANY", "LOCATION", "CREATED")
	for _, job := range page.Results {
		t.row(job.ID, truncate(job.Title, cellWidth), orDash(job.Company), orDash(job.Location), formatTime(job.CreatedAt))
	}
	t.line("Showing %d of %d", len(page.Results), page.Count)
}

func renderJob(t *table, job *model.Job) {
	t.row("ID:", job.ID)
	t.row("Title:", job.Title)
	t.row("Company:", orDash(job.Company))
	t.row("Location:", orDash(job.Location))
	t.row("Salary:", orDash(job.SalaryRange))
	t.row("Requirements:", orDash(truncate(job.Requirements, 200)))
	t.row("Description:", orDash(truncate(job.Description, 200)))
	t.row("Created:", formatTime(job.CreatedAt))
}

func renderMatches(t *table, resp *model.MatchResponse) {
	t.line("%d matches for %s", resp.TotalMatches, resp.JobTitle)
	if len(resp.Matches) == 0 {
		return
	}

	t.row("#", "NAME", "EMAIL", "SCORE", "MATCHED", "MISSING")
	for i, match := range resp.Matches {
		t.row(
			fmt.Sprintf("%d", i+1),
			orDash(match.Name),
			orDash(match.Email),
			fmt.Sprintf("%.0f%%", match.MatchScore*100),
			orDash(truncate(strings.Join(match.MatchedSkills, ", "), cellWidth)),
			orDash(truncate(strings.Join(match.MissingRequirements, ", "), cellWidth)),
		)
	}
}

func renderAsk(t *table, resp *model.AskResponse) {
	t.line("%d results for %q", resp.TotalResults, resp.Query)
	if len(resp.Results) == 0 {
		return
	}

	t.row("#", "NAME", "EMAIL", "SCORE", "SKILLS", "EVIDENCE")
	for i, result := range resp.Results {
		evidence := ""
		if len(result.EvidenceSnippets) > 0 {
			evidence = result.EvidenceSnippets[0]
		}
		t.row(
			fmt.Sprintf("%d", i+1),
			orDash(result.Name),
			orDash(result.Email),
			fmt.Sprintf("%.2f", result.SimilarityScore),
			orDash(truncate(result.MatchedSkills, cellWidth)),
			orDash(truncate(evidence, cellWidth)),
		)
	}
}
