package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/feedclient/internal/apperror"
	"github.com/sakif/feedclient/internal/auth"
	"github.com/sakif/feedclient/internal/model"
	"github.com/sakif/feedclient/internal/viewmodel"
)

var errUsage = errors.New("usage")

func usageErr(format string, a ...any) error {
	return fmt.Errorf("%w: feedcli "+format, append([]any{errUsage}, a...)...)
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// parseArgs parses fs from args, allowing flags after positional
// arguments, and returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, usageErr("%s: %v", fs.Name(), err)
		}
		if fs.NArg() == 0 {
			return pos, nil
		}
		pos = append(pos, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErr("%q is not an id", s)
	}
	return id, nil
}

// app runs commands against one session.
type app struct {
	session  *viewmodel.Session
	out      io.Writer
	pageSize int
	mode     auth.Mode
}

func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	commands := map[string]func(context.Context, []string) error{
		"login":          a.login,
		"signup":         a.signup,
		"logout":         a.logout,
		"whoami":         a.whoami,
		"health":         a.health,
		"feed":           a.feed,
		"post":           a.post,
		"edit":           a.edit,
		"delete":         a.delete,
		"like":           func(ctx context.Context, args []string) error { return a.like(ctx, args, true) },
		"unlike":         func(ctx context.Context, args []string) error { return a.like(ctx, args, false) },
		"show":           a.show,
		"comment":        a.comment,
		"edit-comment":   a.editComment,
		"delete-comment": a.deleteComment,
		"search":         a.search,
		"profile":        a.profile,
		"follow":         func(ctx context.Context, args []string) error { return a.follow(ctx, args, true) },
		"unfollow":       func(ctx context.Context, args []string) error { return a.follow(ctx, args, false) },
		"followers":      func(ctx context.Context, args []string) error { return a.people(ctx, args, true) },
		"following":      func(ctx context.Context, args []string) error { return a.people(ctx, args, false) },
	}
	cmd, ok := commands[name]
	if !ok {
		return usageErr("unknown command %q", name)
	}
	return cmd(ctx, args)
}

// handle lets the session classify an error from a direct facade call.
func (a *app) handle(ctx context.Context, err error) error {
	if err != nil {
		a.session.HandleError(ctx, err)
	}
	return err
}

// =========================================================================
// ACCOUNT
// =========================================================================

func (a *app) credentials(name string, args []string) (string, string, error) {
	fs := newFlagSet(name, io.Discard)
	password := fs.String("password", "", "account password")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return "", "", err
	}
	if len(pos) != 1 {
		return "", "", usageErr("%s <username> --password P", name)
	}
	if a.mode == auth.ModeBearer && *password == "" {
		return "", "", usageErr("%s: --password is required in bearer mode", name)
	}
	return pos[0], *password, nil
}

func (a *app) login(ctx context.Context, args []string) error {
	username, password, err := a.credentials("login", args)
	if err != nil {
		return err
	}
	if err := a.session.Login(ctx, username, password); err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			return errors.New("incorrect username or password")
		}
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s.\n", a.session.Identity().Username)
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	username, password, err := a.credentials("signup", args)
	if err != nil {
		return err
	}
	if err := a.session.Signup(ctx, username, password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s.\n", a.session.Identity().Username)
	return nil
}

func (a *app) logout(ctx context.Context, args []string) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *app) whoami(ctx context.Context, args []string) error {
	id := a.session.Identity()
	if id == nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(a.out, "%s (id %d, %s mode)\n", id.Username, id.UserID, a.mode)
	return nil
}

func (a *app) health(ctx context.Context, args []string) error {
	h, err := a.session.API().System.Health(ctx)
	if err != nil {
		return a.handle(ctx, err)
	}
	fmt.Fprintf(a.out, "%s (version %s)\n", h.Status, h.Version)
	return nil
}

// =========================================================================
// POSTS
// =========================================================================

// pages reads --pages from args and returns it with the positionals.
func pages(name string, args []string) (int, []string, error) {
	fs := newFlagSet(name, io.Discard)
	n := fs.Int("pages", 1, "number of pages to load")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return 0, nil, err
	}
	if *n < 1 {
		return 0, nil, usageErr("%s: --pages must be at least 1", name)
	}
	return *n, pos, nil
}

// loadPages fetches page 1, then keeps loading while the list offers more
// and fewer than n pages are shown.
func loadPages(ctx context.Context, n int, refresh, more func(context.Context) error, showMore func() bool) error {
	if err := refresh(ctx); err != nil {
		return err
	}
	for i := 1; i < n && showMore(); i++ {
		if err := more(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) feed(ctx context.Context, args []string) error {
	n, _, err := pages("feed", args)
	if err != nil {
		return err
	}
	v := viewmodel.NewFeedView(a.session, a.pageSize)
	defer v.Close()

	if err := loadPages(ctx, n, v.Refresh, v.LoadMore, func() bool { return v.Snapshot().ShowLoadMore() }); err != nil {
		return err
	}
	snap := v.Snapshot()
	if snap.Empty() {
		fmt.Fprintln(a.out, "No posts yet.")
		return nil
	}
	for _, p := range snap.Items {
		printPost(a.out, p)
	}
	if snap.ShowLoadMore() {
		fmt.Fprintf(a.out, "-- more: feedcli feed --pages %d\n", n+1)
	}
	return nil
}

func (a *app) post(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageErr("post <content>")
	}
	v := viewmodel.NewFeedView(a.session, a.pageSize)
	defer v.Close()

	p, err := v.Create(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Posted #%d.\n", p.ID)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageErr("edit <id> <content>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	v := viewmodel.NewFeedView(a.session, a.pageSize)
	defer v.Close()

	p, err := v.Edit(ctx, id, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	printPost(a.out, p)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageErr("delete <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	v := viewmodel.NewFeedView(a.session, a.pageSize)
	defer v.Close()

	if err := v.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted #%d.\n", id)
	return nil
}

func (a *app) like(ctx context.Context, args []string, want bool) error {
	if len(args) != 1 {
		return usageErr("like|unlike <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	v := viewmodel.NewPostDetailView(a.session, id, 1)
	defer v.Close()

	if err := v.Load(ctx); err != nil {
		return err
	}
	if p, _ := v.Post(); p.IsLiked != want {
		if err := v.ToggleLike(ctx); err != nil {
			return err
		}
	}
	p, _ := v.Post()
	fmt.Fprintf(a.out, "#%d: %s, %d likes\n", p.ID, likedLabel(p.IsLiked), p.LikesCount)
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	n, pos, err := pages("show", args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usageErr("show <id> [--pages N]")
	}
	id, err := parseID(pos[0])
	if err != nil {
		return err
	}
	v := viewmodel.NewPostDetailView(a.session, id, a.pageSize)
	defer v.Close()

	if err := loadPages(ctx, n, v.Load, v.LoadMoreComments, func() bool { return v.Comments().ShowLoadMore() }); err != nil {
		return err
	}
	p, _ := v.Post()
	printPost(a.out, p)

	comments := v.Comments()
	if comments.Empty() {
		fmt.Fprintln(a.out, "  No comments yet.")
		return nil
	}
	for _, c := range comments.Items {
		fmt.Fprintf(a.out, "  [%d] %s: %s\n", c.ID, c.Author.Username, c.Content)
	}
	if comments.ShowLoadMore() {
		fmt.Fprintf(a.out, "  -- more: feedcli show %d --pages %d\n", id, n+1)
	}
	return nil
}

func (a *app) comment(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageErr("comment <post-id> <content>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	v := viewmodel.NewPostDetailView(a.session, id, 1)
	defer v.Close()

	if err := v.Load(ctx); err != nil {
		return err
	}
	c, err := v.AddComment(ctx, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	p, _ := v.Post()
	fmt.Fprintf(a.out, "Comment #%d added; #%d now has %d comments.\n", c.ID, p.ID, p.CommentsCount)
	return nil
}

func (a *app) editComment(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageErr("edit-comment <id> <content>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	c, err := a.session.API().Comments.Update(ctx, id, strings.Join(args[1:], " "))
	if err != nil {
		return a.handle(ctx, err)
	}
	fmt.Fprintf(a.out, "[%d] %s: %s\n", c.ID, c.Author.Username, c.Content)
	return nil
}

func (a *app) deleteComment(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageErr("delete-comment <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := a.session.API().Comments.Delete(ctx, id); err != nil {
		return a.handle(ctx, err)
	}
	fmt.Fprintf(a.out, "Deleted comment #%d.\n", id)
	return nil
}

// =========================================================================
// PEOPLE
// =========================================================================

func (a *app) search(ctx context.Context, args []string) error {
	n, pos, err := pages("search", args)
	if err != nil {
		return err
	}
	query := strings.Join(pos, " ")
	if strings.TrimSpace(query) == "" {
		return usageErr("search <query>")
	}
	v := viewmodel.NewSearchView(a.session, a.pageSize)
	defer v.Close()

	search := func(ctx context.Context) error { return v.Search(ctx, query) }
	if err := loadPages(ctx, n, search, v.LoadMore, func() bool { return v.Snapshot().ShowLoadMore() }); err != nil {
		return err
	}
	snap := v.Snapshot()
	if snap.Empty() {
		fmt.Fprintf(a.out, "No users match %q.\n", query)
		return nil
	}
	for _, u := range snap.Items {
		printUser(a.out, u)
	}
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	var id int64
	if len(args) > 1 {
		return usageErr("profile [user-id]")
	}
	if len(args) == 1 {
		var err error
		if id, err = parseID(args[0]); err != nil {
			return err
		}
	}
	v := viewmodel.NewProfileView(a.session)
	defer v.Close()

	if err := v.Load(ctx, id); err != nil {
		return err
	}
	p, _ := v.Profile()
	fmt.Fprintf(a.out, "%s (id %d)\n", p.Username, p.ID)
	fmt.Fprintf(a.out, "  %d posts, %d followers, %d following\n", p.PostsCount, p.FollowersCount, p.FollowingCount)
	if p.IsFollowing != nil && *p.IsFollowing {
		fmt.Fprintln(a.out, "  You follow this user.")
	}
	for _, post := range p.Posts {
		printPost(a.out, post)
	}
	return nil
}

func (a *app) follow(ctx context.Context, args []string, want bool) error {
	if len(args) != 1 {
		return usageErr("follow|unfollow <user-id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	v := viewmodel.NewProfileView(a.session)
	defer v.Close()

	if err := v.Load(ctx, id); err != nil {
		return err
	}
	if v.IsSelf() {
		return errors.New("you cannot follow yourself")
	}
	if p, _ := v.Profile(); p.IsFollowing == nil || *p.IsFollowing != want {
		if err := v.ToggleFollow(ctx); err != nil {
			return err
		}
	}
	p, _ := v.Profile()
	verb := "Not following"
	if p.IsFollowing != nil && *p.IsFollowing {
		verb = "Following"
	}
	fmt.Fprintf(a.out, "%s %s (%d followers).\n", verb, p.Username, p.FollowersCount)
	return nil
}

func (a *app) people(ctx context.Context, args []string, followers bool) error {
	n, _, err := pages("followers", args)
	if err != nil {
		return err
	}
	fetch := a.session.API().Users.Following
	if followers {
		fetch = a.session.API().Users.Followers
	}
	list := viewmodel.NewPaginator[model.UserSummary](fetch, a.pageSize, a.session)
	defer list.Close()

	if err := loadPages(ctx, n, list.Refresh, list.LoadMore, func() bool { return list.Snapshot().ShowLoadMore() }); err != nil {
		return err
	}
	snap := list.Snapshot()
	if snap.Empty() {
		fmt.Fprintln(a.out, "Nobody yet.")
		return nil
	}
	for _, u := range snap.Items {
		printUser(a.out, u)
	}
	return nil
}

// =========================================================================
// OUTPUT
// =========================================================================

func printPost(w io.Writer, p model.Post) {
	edited := ""
	if p.UpdatedAt != nil {
		edited = " (edited)"
	}
	fmt.Fprintf(w, "#%d %s, %s%s\n", p.ID, p.Author.Username, p.CreatedAt.Local().Format(time.DateTime), edited)
	fmt.Fprintf(w, "  %s\n", p.Content)
	fmt.Fprintf(w, "  %d likes%s, %d comments\n", p.LikesCount, likedMark(p.IsLiked), p.CommentsCount)
}

func printUser(w io.Writer, u model.UserSummary) {
	fmt.Fprintf(w, "%d\t%s\t%d followers\n", u.ID, u.Username, u.FollowersCount)
}

func likedLabel(liked bool) string {
	if liked {
		return "liked"
	}
	return "not liked"
}

func likedMark(liked bool) string {
	if liked {
		return " (you)"
	}
	return ""
}
