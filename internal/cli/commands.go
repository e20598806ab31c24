package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/common-nighthawk/go-figure"

	"talentmatch-client/internal/model"
	"talentmatch-client/internal/service"
)

func commandTable() []command {
	return []command{
		{name: "login", usage: "login [-username u] [-password p]", summary: "log in and store the session", run: runLogin},
		{name: "register", usage: "register -username u -password p [-email e]", summary: "create an account and log in", run: runRegister},
		{name: "logout", usage: "logout", summary: "forget the stored session", run: runLogout},
		{name: "status", usage: "status", summary: "show the stored session", run: runStatus},
		{name: "upload", usage: "upload [-email e] [-phone p] <files...>", summary: "upload resumes (pdf, doc, docx, txt)", run: runUpload},
		{name: "resumes", usage: "resumes [-q text] [-limit n] [-offset n]", summary: "list resumes", run: runResumes},
		{name: "resume", usage: "resume <id>", summary: "show one resume", run: runResume},
		{name: "jobs", usage: "jobs [-limit n] [-offset n]", summary: "list job descriptions", run: runJobs},
		{name: "job", usage: "job <id>", summary: "show one job description", run: runJob},
		{name: "job-create", usage: "job-create -title t -company c -description d -requirements r", summary: "create a job description", run: runJobCreate},
		{name: "match", usage: "match [-top n] <job-id>", summary: "rank resumes against a job", run: runMatch},
		{name: "ask", usage: "ask [-k n] <question>", summary: "ask a question about the resumes", run: runAsk},
		{name: "search", usage: "search [-limit n] [-offset n] <text>", summary: "filter resumes by text", run: runSearch},
		{name: "dashboard", usage: "dashboard", summary: "latest resumes and jobs", run: runDashboard},
		{name: "version", usage: "version", summary: "print the version", run: runVersion},
	}
}

func runLogin(ctx context.Context, c *CLI, args []string) error {
	fs := c.flags("login")
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	var err error
	if *username == "" {
		if *username, err = c.prompt("Username: "); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = c.promptSecret("Password: "); err != nil {
			return err
		}
	}

	user, err := c.services.Auth.Login(ctx, *username, *password)
	if err != nil {
		return err
	}

	return c.render(user, func(t *table) {
		t.line("Logged in as %s", user.Username)
	})
}

func runRegister(ctx context.Context, c *CLI, args []string) error {
	fs := c.flags("register")
	var req model.RegisterRequest
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Password, "password", "", "password (prompted when empty)")
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.FirstName, "first-name", "", "first name")
	fs.StringVar(&req.LastName, "last-name", "", "last name")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	if req.Username == "" {
		return c.usageError("register -username u -password p [-email e]")
	}
	if req.Password == "" {
		password, err := c.promptSecret("Password: ")
		if err != nil {
			return err
		}
		req.Password = password
	}

	user, err := c.services.Auth.Register(ctx, req)
	if err != nil {
		return err
	}

	return c.render(user, func(t *table) {
		t.line("Registered and logged in as %s", user.Username)
	})
}

func runLogout(_ context.Context, c *CLI, args []string) error {
	if err := c.parse(c.flags("logout"), args); err != nil {
		return err
	}
	if err := c.services.Auth.Logout(); err != nil {
		return err
	}

	return c.render(map[string]bool{"logged_out": true}, func(t *table) {
		t.line("Logged out")
	})
}

func runStatus(_ context.Context, c *CLI, args []string) error {
	if err := c.parse(c.flags("status"), args); err != nil {
		return err
	}

	status := c.services.Auth.Status()
	return c.render(status, func(t *table) { renderStatus(t, status) })
}

func runUpload(ctx context.Context, c *CLI, args []string) error {
	fs := c.flags("upload")
	var opts service.UploadOptions
	fs.StringVar(&opts.Email, "email", "", "contact email sent with every file")
	fs.StringVar(&opts.Phone, "phone", "", "contact phone sent with every file")
	fs.BoolVar(&opts.Idempotent, "idempotent", true, "send an Idempotency-Key with each file")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return c.usageError("upload [-email e] [-phone p] <files...>")
	}

	results := c.services.Resumes.UploadMany(ctx, fs.Args(), opts)
	if err := c.render(results, func(t *table) { renderUploads(t, results) }); err != nil {
		return err
	}

	failed := 0
	for _, result := range results {
		if result.Status != model.UploadStatusSuccess {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}

	return nil
}

func runResumes(ctx context.Context, c *CLI, args []string) error {
	fs := c.flags("resumes")
	var params model.ListParams
	fs.StringVar(&params.Q, "q", "", "filter by name, email, skills or text")
	fs.IntVar(&params.Limit, "limit", 20, "page size")
	fs.IntVar(&params.Offset, "offset", 0, "page offset")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	page, err := c.services.Resumes.List(ctx, params)
	if err != nil {
		return err
	}

	return c.render(page, func(t *table) { renderResumes(t, page) })
}

func runResume(ctx context.Context, c *CLI, args []string) error {
	fs := c.flags("resume")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return c.usageError("resume <id>")
	}

	resume, err := c.services.Resumes.Get(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	return c.render(resume, func(t *table) { renderResume(t, resume) })
}

func runJobs(ctx context.Context, c *CLI, args []string) error {
	fs := c.flags("jobs")
	var params model.ListParams
	fs.IntVar(&params.Limit, "limit", 20, "page size")
	fs.IntVar(&params.Offset, "offset", 0, "page offset")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	page, err := c.services.Jobs.List(ctx, params)
	if err != nil {
		return err
	}

	return c.render(page, func(t *table) { renderJobs(t, page) })
}

func runJob(ctx context.Context, c *CLI, args []string) error {
	fs := c.flags("job")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return c.usageError("job <id>")
	}

	job, err := c.services.Jobs.Get(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	return c.render(job, func(t *table) { renderJob(t, job) })
}

func runJobCreate(ctx context.Context, c *CLI, args []string) error {
	fs := c.flags("job-create")
	var input model.JobInput
	fs.StringVar(&input.Title, "title", "", "job title")
	fs.StringVar(&input.Company, "company", "", "company name")
	fs.StringVar(&input.Description, "description", "", "job description")
	fs.StringVar(&input.Requirements, "requirements", "", "comma separated requirements")
	fs.StringVar(&input.Location, "location", "", "location")
	fs.StringVar(&input.SalaryRange, "salary", "", "salary range")
	key := fs.String("idempotency-key", "", "Idempotency-Key to send (generated when empty)")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	if *key == "" {
		*key = service.NewIdempotencyKey("job")
	}

	job, err := c.services.Jobs.Create(ctx, input, *key)
	if err != nil {
		return err
	}

	return c.render(job, func(t *table) {
		t.line("Created job %s", job.ID)
		renderJob(t, job)
	})
}

func runMatch(ctx context.Context, c *CLI, args []string) error {
	fs := c.flags("match")
	topN := fs.Int("top", model.DefaultTopN, "number of matches to return (1-50)")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return c.usageError("match [-top n] <job-id>")
	}

	resp, err := c.services.Jobs.Match(ctx, fs.Arg(0), *topN)
	if err != nil {
		return err
	}

	return c.render(resp, func(t *table) { renderMatches(t, resp) })
}

func runAsk(ctx context.Context, c *CLI, args []string) error {
	fs := c.flags("ask")
	k := fs.Int("k", model.DefaultAskK, "number of results (1-20)")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return c.usageError("ask [-k n] <question>")
	}

	resp, err := c.services.Query.Ask(ctx, strings.Join(fs.Args(), " "), *k)
	if err != nil {
		return err
	}

	return c.render(resp, func(t *table) { renderAsk(t, resp) })
}

func runSearch(ctx context.Context, c *CLI, args []string) error {
	fs := c.flags("search")
	limit := fs.Int("limit", 20, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return c.usageError("search [-limit n] [-offset n] <text>")
	}

	page, err := c.services.Resumes.Search(ctx, strings.Join(fs.Args(), " "), *limit, *offset)
	if err != nil {
		return err
	}

	return c.render(page, func(t *table) { renderResumes(t, page) })
}

func runDashboard(ctx context.Context, c *CLI, args []string) error {
	if err := c.parse(c.flags("dashboard"), args); err != nil {
		return err
	}

	summary, err := c.services.Dashboard.Summary(ctx)
	if err != nil {
		return err
	}

	return c.render(summary, func(t *table) {
		t.line("Resumes (%s total)", strconv.Itoa(summary.Resumes.Count))
		renderResumes(t, summary.Resumes)
		t.line("")
		t.line("Jobs (%s total)", strconv.Itoa(summary.Jobs.Count))
		renderJobs(t, summary.Jobs)
	})
}

func runVersion(_ context.Context, c *CLI, args []string) error {
	if err := c.parse(c.flags("version"), args); err != nil {
		return err
	}

	return c.render(map[string]string{"version": Version}, func(t *table) {
		t.raw(figure.NewFigure("tmctl", "cybermedium", true).String())
		t.line("tmctl %s", Version)
	})
}
