package cmd

import (
	"net/http"
	"os"

	"byn/internal/cli"
	"byn/pkg/api"
	pkgstrings "byn/pkg/strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardJobCount  = 5
	dashboardPostCount = 3
)

// dashboardCmd represents the dashboard command
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show a one-screen summary of your account",
	Long: `Show a one-screen summary: your profile, the latest job
listings, and recent posts from your network. The three sections are
fetched concurrently.

Examples:
  byn dashboard`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := app.requireSession(ctx); err != nil {
		return err
	}

	var (
		jobs api.Page[api.Job]
		feed api.Page[api.Post]
	)

	stop := spin("Loading dashboard...")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.manager.RefreshUser(gctx)
	})
	g.Go(func() error {
		return app.manager.Gateway().DoJSON(gctx, http.MethodGet, jobsPath, nil, &jobs)
	})
	g.Go(func() error {
		return app.manager.Gateway().DoJSON(gctx, http.MethodGet, feedPath, nil, &feed)
	})
	err = g.Wait()
	stop()
	if err != nil {
		return app.wrapRequestError(err)
	}

	user := app.manager.Session().User
	out("%s\n", text.Bold.Sprint("Welcome back, "+user.DisplayName()))
	if user.Headline != "" {
		outln(text.FgHiBlack.Sprint(user.Headline))
	}
	outln("")

	outln(text.FgHiCyan.Sprint("LATEST JOBS"))
	printDashboardJobs(jobs)
	outln("")

	outln(text.FgHiCyan.Sprint("RECENT ACTIVITY"))
	printDashboardFeed(feed)
	return nil
}

func printDashboardJobs(page api.Page[api.Job]) {
	if len(page.Results) == 0 {
		outln("No open listings right now.")
		return
	}
	jobs := page.Results
	if len(jobs) > dashboardJobCount {
		jobs = jobs[:dashboardJobCount]
	}

	tbl := cli.NewTable(os.Stdout)
	tbl.AppendHeader(cli.HeaderRow("ID", "TITLE", "COMPANY", "LOCATION", "POSTED"))
	for _, job := range jobs {
		tbl.AppendRow(table.Row{
			job.ID,
			pkgstrings.TruncateCell(job.Title, 40),
			pkgstrings.TruncateCell(job.CompanyName(), 24),
			pkgstrings.TruncateCell(job.Location, 20),
			cli.TimeAgo(cli.ParseTimestamp(job.CreatedAt)),
		})
	}
	tbl.Render()
	outln("See more with: byn jobs list")
}

func printDashboardFeed(page api.Page[api.Post]) {
	if len(page.Results) == 0 {
		outln("Nothing new in your network.")
		return
	}
	posts := page.Results
	if len(posts) > dashboardPostCount {
		posts = posts[:dashboardPostCount]
	}
	for _, post := range posts {
		printPost(post)
	}
	outln("See more with: byn feed")
}
