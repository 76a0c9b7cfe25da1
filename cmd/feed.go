package cmd

import (
	"net/http"
	"net/url"
	"os"
	"strconv"

	"byn/internal/cli"
	"byn/internal/gateway"
	"byn/pkg/api"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

const feedPath = "/feed/posts/"

// Feed-specific flags
var (
	feedPage   int
	feedOutput string
)

// feedCmd represents the feed command
var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Read your network feed",
	Long: `Read the posts in your network feed, newest first.

Examples:
  byn feed             # Latest posts
  byn feed --page 2    # Older posts
  byn feed -o json     # Raw page for scripting`,
	RunE: runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().IntVar(&feedPage, "page", 1, "Result page to show")
	feedCmd.Flags().StringVarP(&feedOutput, "output", "o", "table", "Output format: table or json")
}

func runFeed(cmd *cobra.Command, args []string) error {
	if err := cli.ValidateOutputFormat(feedOutput); err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := app.requireSession(ctx); err != nil {
		return err
	}

	query := url.Values{}
	if feedPage > 1 {
		query.Set("page", strconv.Itoa(feedPage))
	}

	var page api.Page[api.Post]
	stop := spin("Loading feed...")
	err = app.manager.Gateway().DoJSON(ctx, http.MethodGet, feedPath, nil, &page, gateway.WithQuery(query))
	stop()
	if err != nil {
		return app.wrapRequestError(err)
	}

	if cli.OutputFormat(feedOutput) == cli.OutputFormatJSON {
		return cli.RenderJSON(os.Stdout, page)
	}

	renderFeed(page)
	return nil
}

func renderFeed(page api.Page[api.Post]) {
	if len(page.Results) == 0 {
		outln("Your feed is empty.")
		return
	}

	for _, post := range page.Results {
		printPost(post)
	}

	out("Showing %d of %d posts", len(page.Results), page.Count)
	if page.HasNext() {
		out(" (more available, try --page %d)", feedPage+1)
	}
	out("\n")
}

// printPost renders one post as a short block: author line, content,
// engagement counters.
func printPost(post api.Post) {
	author := text.Bold.Sprint(post.AuthorName())
	when := cli.TimeAgo(cli.ParseTimestamp(post.CreatedAt))
	out("%s %s\n", author, text.FgHiBlack.Sprint(when))
	if post.Author != nil && post.Author.Headline != "" {
		outln(text.FgHiBlack.Sprint(post.Author.Headline))
	}
	outln(post.Content)
	counters := text.FgHiBlack.Sprintf("%d likes · %d comments · %d shares",
		post.LikesCount, post.CommentsCount, post.SharesCount)
	if post.UserHasLiked {
		counters += text.FgHiBlack.Sprint(" · you liked this")
	}
	outln(counters)
	outln("")
}
