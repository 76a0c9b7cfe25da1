package shell

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"byn/internal/gateway"
	"byn/internal/session"
	"byn/pkg/api"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// shellJobCount limits how many listings a jobs query prints; the
// shell is for a quick look, full paging lives in 'byn jobs list'.
const shellJobCount = 10

// shellPostCount limits how many posts a feed query prints.
const shellPostCount = 5

// executeCommand parses and dispatches one line of input. Commands run
// with their own timeout context, detached from shell lifecycle, so a
// long request is not cut short by prompt redraws.
func (s *Shell) executeCommand(input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	name := strings.ToLower(parts[0])
	args := parts[1:]

	if name == "?" {
		name = "help"
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch name {
	case "help":
		return s.cmdHelp()
	case "status":
		return s.cmdStatus()
	case "whoami":
		return s.cmdWhoami()
	case "profile":
		return s.cmdProfile(ctx)
	case "jobs":
		return s.cmdJobs(ctx, args)
	case "feed":
		return s.cmdFeed(ctx)
	case "login":
		return s.cmdLogin(ctx, args)
	case "logout":
		return s.cmdLogout()
	case "refresh":
		return s.cmdRefresh(ctx)
	case "exit", "quit":
		return errExit
	default:
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", parts[0])
	}
}

func (s *Shell) cmdHelp() error {
	s.println("Available commands:")
	s.println("  status          Session state and endpoint")
	s.println("  whoami          Identity of the active session")
	s.println("  profile         Your full profile")
	s.println("  jobs [query]    Latest job listings, optionally filtered")
	s.println("  feed            Recent posts from your network")
	s.println("  login [email]   Start a session")
	s.println("  logout          End the session")
	s.println("  refresh         Rotate the credential pair now")
	s.println("  help            This overview")
	s.println("  exit            Leave the shell")
	return nil
}

func (s *Shell) cmdStatus() error {
	snap := s.manager.Session()

	var state string
	switch snap.State {
	case session.StateAuthenticated:
		state = text.FgGreen.Sprint("signed in")
	case session.StateAuthError:
		state = text.FgRed.Sprint("sign-in failed")
	case session.StateInitializing:
		state = text.FgHiBlack.Sprint("initializing")
	default:
		state = text.FgYellow.Sprint("signed out")
	}

	s.println("Status:   " + state)
	if snap.User != nil {
		s.println("Identity: " + snap.User.Email)
	}
	if s.endpoint != "" {
		s.println("Endpoint: " + s.endpoint)
	}
	if snap.Err != "" {
		s.println("Note:     " + snap.Err)
	}
	return nil
}

func (s *Shell) cmdWhoami() error {
	snap := s.manager.Session()
	if !snap.SignedIn() {
		return fmt.Errorf("not signed in. Run 'login' to start a session")
	}
	name := snap.User.DisplayName()
	if name != snap.User.Email {
		s.println(fmt.Sprintf("%s (%s)", snap.User.Email, name))
		return nil
	}
	s.println(snap.User.Email)
	return nil
}

func (s *Shell) cmdProfile(ctx context.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	if err := s.manager.RefreshUser(ctx); err != nil {
		return s.describeRequestError(err)
	}

	user := s.manager.Session().User
	s.println(text.Bold.Sprint(user.DisplayName()))
	if user.Headline != "" {
		s.println(user.Headline)
	}
	for _, field := range []struct{ label, value string }{
		{"Email", user.Email},
		{"Position", user.CurrentPosition},
		{"Location", user.Location},
		{"Industry", user.Industry},
	} {
		if field.value != "" {
			s.println(fmt.Sprintf("%-10s %s", field.label+":", field.value))
		}
	}
	return nil
}

func (s *Shell) cmdJobs(ctx context.Context, args []string) error {
	if err := s.requireSession(); err != nil {
		return err
	}

	query := url.Values{}
	if len(args) > 0 {
		query.Set("search", strings.Join(args, " "))
	}

	var page api.Page[api.Job]
	err := s.manager.Gateway().DoJSON(ctx, http.MethodGet, "/jobs/jobs/", nil, &page, gateway.WithQuery(query))
	if err != nil {
		return s.describeRequestError(err)
	}

	if len(page.Results) == 0 {
		s.println("No jobs found.")
		return nil
	}

	jobs := page.Results
	if len(jobs) > shellJobCount {
		jobs = jobs[:shellJobCount]
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(s.rl.Stdout())
	tbl.SetStyle(table.StyleRounded)
	tbl.AppendHeader(table.Row{"ID", "TITLE", "COMPANY", "LOCATION"})
	for _, job := range jobs {
		tbl.AppendRow(table.Row{job.ID, job.Title, job.CompanyName(), job.Location})
	}
	tbl.Render()
	s.println(fmt.Sprintf("%d of %d listings. Full paging: byn jobs list", len(jobs), page.Count))
	return nil
}

func (s *Shell) cmdFeed(ctx context.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}

	var page api.Page[api.Post]
	err := s.manager.Gateway().DoJSON(ctx, http.MethodGet, "/feed/posts/", nil, &page)
	if err != nil {
		return s.describeRequestError(err)
	}

	if len(page.Results) == 0 {
		s.println("Your feed is empty.")
		return nil
	}

	posts := page.Results
	if len(posts) > shellPostCount {
		posts = posts[:shellPostCount]
	}
	for _, post := range posts {
		s.println(text.Bold.Sprint(post.AuthorName()))
		s.println(post.Content)
		s.println(text.FgHiBlack.Sprintf("%d likes · %d comments", post.LikesCount, post.CommentsCount))
		s.println("")
	}
	return nil
}

// cmdLogin starts a session from inside the shell. The resulting
// transition is announced by the session listener, so success prints
// through that path rather than here.
func (s *Shell) cmdLogin(ctx context.Context, args []string) error {
	if s.manager.Session().SignedIn() {
		return fmt.Errorf("already signed in. Run 'logout' first to switch accounts")
	}

	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		email, err = s.readLine("Email: ")
		if err != nil {
			return err
		}
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}

	password, err := s.rl.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("input aborted")
	}

	if err := s.manager.Login(ctx, email, string(password)); err != nil {
		if gateway.IsInvalidCredentials(err) {
			return fmt.Errorf("%s", s.manager.Session().Err)
		}
		return s.describeRequestError(err)
	}
	return nil
}

// cmdLogout ends the session. The sign-out notice comes through the
// session listener; server-side revocation continues in background.
func (s *Shell) cmdLogout() error {
	if !s.manager.Session().SignedIn() {
		return fmt.Errorf("not signed in")
	}
	s.manager.Logout()
	return nil
}

func (s *Shell) cmdRefresh(ctx context.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	if _, err := s.manager.Gateway().Refresh(ctx); err != nil {
		if errors.Is(err, gateway.ErrNoRefreshCredential) || gateway.IsInvalidCredentials(err) {
			return fmt.Errorf("session can no longer be renewed. Run 'login' to sign in again")
		}
		return s.describeRequestError(err)
	}
	s.println("Credentials rotated.")
	return nil
}

func (s *Shell) requireSession() error {
	if !s.manager.Session().SignedIn() {
		return fmt.Errorf("not signed in. Run 'login' to start a session")
	}
	return nil
}

// describeRequestError renders request failures in shell-friendly
// form. Expiry is quiet here because the session listener already
// announces the transition.
func (s *Shell) describeRequestError(err error) error {
	if gateway.IsAuthExpired(err) {
		return fmt.Errorf("session expired. Run 'login' to sign in again")
	}
	var httpErr *gateway.HTTPError
	if errors.As(err, &httpErr) {
		if detail := httpErr.Detail(); detail != "" {
			return fmt.Errorf("the platform answered %d: %s", httpErr.Status, detail)
		}
		return fmt.Errorf("the platform answered %d", httpErr.Status)
	}
	return fmt.Errorf("the platform could not be reached: %v", err)
}
