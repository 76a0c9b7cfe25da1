package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"byn/internal/cli"
	"byn/internal/gateway"
	"byn/pkg/api"
	pkgstrings "byn/pkg/strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// The platform mounts the job board under /jobs and the listing
// resource under /jobs/jobs/; the doubled segment is part of the API.
const jobsPath = "/jobs/jobs/"

// Jobs-specific flags
var (
	jobsSearch   string
	jobsLocation string
	jobsType     string
	jobsRemote   bool
	jobsPage     int
	jobsOutput   string

	saveRemove       bool
	applyCoverLetter string
)

// jobsCmd represents the jobs command group
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Browse and act on job listings",
	Long: `Browse job listings and act on them.

Examples:
  byn jobs list                        # Latest job listings
  byn jobs list --search golang        # Full-text search
  byn jobs list --remote --page 2      # Remote jobs, second page
  byn jobs saved                       # Listings you saved
  byn jobs save 42                     # Save a listing
  byn jobs save 42 --remove            # Unsave it again
  byn jobs apply 42                    # Apply to a listing`,
}

// jobsListCmd represents the jobs list command
var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List job listings",
	RunE:  runJobsList,
}

// jobsSavedCmd represents the jobs saved command
var jobsSavedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List the jobs you saved",
	RunE:  runJobsSaved,
}

// jobsSaveCmd represents the jobs save command
var jobsSaveCmd = &cobra.Command{
	Use:   "save <job-id>",
	Short: "Save a job listing for later",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsSave,
}

// jobsApplyCmd represents the jobs apply command
var jobsApplyCmd = &cobra.Command{
	Use:   "apply <job-id>",
	Short: "Apply to a job listing",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsApply,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsSavedCmd)
	jobsCmd.AddCommand(jobsSaveCmd)
	jobsCmd.AddCommand(jobsApplyCmd)

	jobsListCmd.Flags().StringVar(&jobsSearch, "search", "", "Full-text search over title, description, and company")
	jobsListCmd.Flags().StringVar(&jobsLocation, "location", "", "Filter by location substring")
	jobsListCmd.Flags().StringVar(&jobsType, "type", "", "Filter by job type (full_time, part_time, contract, ...)")
	jobsListCmd.Flags().BoolVar(&jobsRemote, "remote", false, "Only remote listings")
	jobsListCmd.Flags().IntVar(&jobsPage, "page", 1, "Result page to show")
	jobsListCmd.Flags().StringVarP(&jobsOutput, "output", "o", "table", "Output format: table or json")

	jobsSavedCmd.Flags().IntVar(&jobsPage, "page", 1, "Result page to show")
	jobsSavedCmd.Flags().StringVarP(&jobsOutput, "output", "o", "table", "Output format: table or json")

	jobsSaveCmd.Flags().BoolVar(&saveRemove, "remove", false, "Unsave instead of save")
	jobsApplyCmd.Flags().StringVar(&applyCoverLetter, "cover-letter", "", "Cover letter text to attach")
}

func runJobsList(cmd *cobra.Command, args []string) error {
	query := url.Values{}
	if jobsSearch != "" {
		query.Set("search", jobsSearch)
	}
	if jobsLocation != "" {
		query.Set("location", jobsLocation)
	}
	if jobsType != "" {
		query.Set("job_type", jobsType)
	}
	if jobsRemote {
		query.Set("workplace_type", "remote")
	}
	return listJobs(cmd, jobsPath, query)
}

func runJobsSaved(cmd *cobra.Command, args []string) error {
	return listJobs(cmd, jobsPath+"saved/", url.Values{})
}

func listJobs(cmd *cobra.Command, path string, query url.Values) error {
	if err := cli.ValidateOutputFormat(jobsOutput); err != nil {
		return err
	}
	if jobsPage > 1 {
		query.Set("page", strconv.Itoa(jobsPage))
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := app.requireSession(ctx); err != nil {
		return err
	}

	var page api.Page[api.Job]
	stop := spin("Loading jobs...")
	err = app.manager.Gateway().DoJSON(ctx, http.MethodGet, path, nil, &page, gateway.WithQuery(query))
	stop()
	if err != nil {
		return app.wrapRequestError(err)
	}

	if cli.OutputFormat(jobsOutput) == cli.OutputFormatJSON {
		return cli.RenderJSON(os.Stdout, page)
	}

	renderJobsTable(page)
	return nil
}

func renderJobsTable(page api.Page[api.Job]) {
	if len(page.Results) == 0 {
		outln("No jobs found.")
		return
	}

	tbl := cli.NewTable(os.Stdout)
	tbl.AppendHeader(cli.HeaderRow("ID", "TITLE", "COMPANY", "LOCATION", "TYPE", "SALARY", "POSTED", ""))
	for _, job := range page.Results {
		marker := ""
		if job.HasApplied {
			marker = text.FgGreen.Sprint("applied")
		} else if job.IsSaved {
			marker = text.FgCyan.Sprint("saved")
		}
		tbl.AppendRow(table.Row{
			job.ID,
			pkgstrings.TruncateCell(job.Title, 40),
			pkgstrings.TruncateCell(job.CompanyName(), 24),
			pkgstrings.TruncateCell(job.Location, 20),
			job.JobType,
			job.SalaryRange(),
			cli.TimeAgo(cli.ParseTimestamp(job.CreatedAt)),
			marker,
		})
	}
	tbl.Render()

	out("Showing %d of %d listings", len(page.Results), page.Count)
	if page.HasNext() {
		out(" (more available, try --page %d)", jobsPage+1)
	}
	out("\n")
}

func runJobsSave(cmd *cobra.Command, args []string) error {
	jobID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id %q", args[0])
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := app.requireSession(ctx); err != nil {
		return err
	}

	method := http.MethodPost
	if saveRemove {
		method = http.MethodDelete
	}

	var msg api.Message
	path := fmt.Sprintf("%s%d/save/", jobsPath, jobID)
	if err := app.manager.Gateway().DoJSON(ctx, method, path, nil, &msg); err != nil {
		if gateway.IsStatus(err, http.StatusNotFound) {
			return fmt.Errorf("job %d not found", jobID)
		}
		return app.wrapRequestError(err)
	}

	out("%s %s\n", text.FgGreen.Sprint("✓"), msg.Message)
	return nil
}

func runJobsApply(cmd *cobra.Command, args []string) error {
	jobID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id %q", args[0])
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := app.requireSession(ctx); err != nil {
		return err
	}

	body := api.ApplyRequest{CoverLetter: applyCoverLetter}
	path := fmt.Sprintf("%s%d/apply/", jobsPath, jobID)
	if err := app.manager.Gateway().DoJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		if gateway.IsStatus(err, http.StatusNotFound) {
			return fmt.Errorf("job %d not found", jobID)
		}
		var httpErr *gateway.HTTPError
		if errors.As(err, &httpErr) && httpErr.Detail() != "" {
			// Typically "You have already applied for this job."
			return fmt.Errorf("application rejected: %s", httpErr.Detail())
		}
		return app.wrapRequestError(err)
	}

	out("%s Application submitted for job %d\n", text.FgGreen.Sprint("✓"), jobID)
	return nil
}
