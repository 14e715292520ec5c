package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fathima-sithara/snapshare/internal/apiclient"
	"go.uber.org/zap"
)

const usage = `usage: snapctl [-server URL] [-v] <command> [args]

commands:
  signup <username> <email> <password>
  login <email> <password>
  logout
  me
  feed
  posts <userID>
  saved
  profile <userID>
  suggested
  post <image> [caption]
  like <postID>
  save <postID>
  comment <postID> <text>
  delete <postID>
  follow <userID>
  bio <text>
`

const defaultServer = "http://localhost:8000"

type cli struct {
	client    *apiclient.Client
	tokenPath string
}

func main() {
	server := flag.String("server", envOr("SNAPSHARE_SERVER", defaultServer), "API base URL")
	verbose := flag.Bool("v", false, "log requests to stderr")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	defer func() { _ = logger.Sync() }()

	c := &cli{
		client:    apiclient.New(apiclient.Config{BaseURL: *server}, logger),
		tokenPath: tokenPath(),
	}
	if tok, err := os.ReadFile(c.tokenPath); err == nil {
		c.client.SetToken(strings.TrimSpace(string(tok)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func tokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "snapshare", "token")
}

func describe(err error) string {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, apiclient.ErrNotAuthenticated):
		return "not logged in, run: snapctl login <email> <password>"
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return err.Error()
	}
}

func need(args []string, n int, form string) error {
	if len(args) < n {
		return fmt.Errorf("usage: snapctl %s", form)
	}
	return nil
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "signup":
		if err := need(args, 3, "signup <username> <email> <password>"); err != nil {
			return err
		}
		u, err := c.client.Signup(ctx, apiclient.RegisterRequest{
			Username: args[0], Email: args[1], Password: args[2], PasswordConfirm: args[2],
		})
		if err != nil {
			return err
		}
		fmt.Printf("Welcome %s! Check %s for your verification code.\n", u.Username, u.Email)
		return c.saveToken()

	case "login":
		if err := need(args, 2, "login <email> <password>"); err != nil {
			return err
		}
		u, err := c.client.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", u.Username)
		return c.saveToken()

	case "logout":
		err := c.client.Logout(ctx)
		if rmErr := os.Remove(c.tokenPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return rmErr
		}
		if err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil

	case "me":
		u, err := c.client.Me(ctx)
		if err != nil {
			return err
		}
		printUser(u)
		return nil

	case "feed":
		printPosts(c.client.Feed(ctx))
		return nil

	case "posts":
		if err := need(args, 1, "posts <userID>"); err != nil {
			return err
		}
		printPosts(c.client.UserPosts(ctx, args[0]))
		return nil

	case "saved":
		posts, err := c.client.SavedPosts(ctx)
		if err != nil {
			return err
		}
		printPosts(posts)
		return nil

	case "profile":
		if err := need(args, 1, "profile <userID>"); err != nil {
			return err
		}
		p, err := c.client.Profile(ctx, args[0])
		if err != nil {
			return err
		}
		printUser(&p.User)
		printPosts(p.Posts)
		return nil

	case "suggested":
		users, err := c.client.Suggested(ctx)
		if err != nil {
			return err
		}
		for i := range users {
			fmt.Printf("%s  %s\n", users[i].ID, users[i].Username)
		}
		return nil

	case "post":
		if err := need(args, 1, "post <image> [caption]"); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		caption := strings.Join(args[1:], " ")
		p, err := c.client.CreatePost(ctx, caption, apiclient.FilePart{
			Filename:    filepath.Base(args[0]),
			ContentType: mime.TypeByExtension(filepath.Ext(args[0])),
			Data:        data,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Posted %s %s\n", p.ID, p.Image.URL)
		return nil

	case "like", "save", "follow", "delete":
		if err := need(args, 1, cmd+" <id>"); err != nil {
			return err
		}
		msg, err := c.toggle(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil

	case "comment":
		if err := need(args, 2, "comment <postID> <text>"); err != nil {
			return err
		}
		cm, err := c.client.AddComment(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("Comment %s added\n", cm.ID)
		return nil

	case "bio":
		if err := need(args, 1, "bio <text>"); err != nil {
			return err
		}
		bio := strings.Join(args, " ")
		if _, err := c.client.EditProfile(ctx, &bio, nil); err != nil {
			return err
		}
		fmt.Println("Profile updated")
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func (c *cli) toggle(ctx context.Context, cmd, id string) (string, error) {
	switch cmd {
	case "like":
		return c.client.ToggleLike(ctx, id)
	case "save":
		return c.client.ToggleSave(ctx, id)
	case "follow":
		return c.client.ToggleFollow(ctx, id)
	default:
		if err := c.client.DeletePost(ctx, id); err != nil {
			return "", err
		}
		return "Post deleted", nil
	}
}

func (c *cli) saveToken() error {
	if err := os.MkdirAll(filepath.Dir(c.tokenPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.tokenPath, []byte(c.client.Token()), 0o600)
}

func printUser(u *apiclient.User) {
	fmt.Printf("%s (%s)\n", u.Username, u.ID)
	if u.Bio != "" {
		fmt.Println(u.Bio)
	}
	fmt.Printf("%d posts  %d followers  %d following\n", len(u.Posts), len(u.Followers), len(u.Following))
}

func printPosts(posts []apiclient.Post) {
	if len(posts) == 0 {
		fmt.Println("No posts yet.")
		return
	}
	for _, p := range posts {
		author := "unknown"
		if p.User != nil {
			author = p.User.Username
		}
		fmt.Printf("%s  @%s  %s  %d likes  %d comments\n", p.ID, author, p.CreatedAt.Format(time.DateTime), len(p.Likes), len(p.Comments))
		if p.Caption != "" {
			fmt.Printf("    %s\n", p.Caption)
		}
	}
}
