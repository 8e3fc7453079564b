package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-community/src/community"
	"campus-community/src/directory"
	"campus-community/src/lib"
	"campus-community/src/models"
)

const usage = `usage:
  invite resolve [-join] [-timeout 2m] <token>
  invite admin <slug> members|requests|invite|link
  invite admin <slug> accept|reject|remove <user-id>
  invite admin <slug> regenerate
  invite admin <slug> rename <name> <description> [icon-url]
  invite admin <slug> icon <image-file>`

func main() {
	cfg, err := lib.LoadClientConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := lib.NewLoggerTo(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := cli{
		cfg:      cfg,
		out:      os.Stdout,
		dir:      directory.NewClient(cfg.DirectoryURL),
		sessions: community.StaticSession(sessionFrom(cfg)),
	}
	app.resolverOpts = []community.ResolverOption{
		community.WithPollInterval(cfg.PollInterval()),
		community.WithResolverLogger(logger),
	}
	app.consoleOpts = []community.ConsoleOption{
		community.WithOrigin(cfg.PublicOrigin),
		community.WithConsoleLogger(logger),
	}

	if err := app.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func sessionFrom(cfg lib.ClientConfig) models.Session {
	if cfg.SessionToken == "" {
		return models.Session{}
	}
	return models.Session{Authenticated: true, Token: cfg.SessionToken, UserID: cfg.SessionUserID}
}

type cli struct {
	cfg          lib.ClientConfig
	out          io.Writer
	dir          directory.Directory
	sessions     community.SessionProvider
	resolverOpts []community.ResolverOption
	consoleOpts  []community.ConsoleOption
}

func (c cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "resolve":
		return c.resolve(ctx, args[1:])
	case "admin":
		return c.admin(ctx, args[1:])
	default:
		return errors.New(usage)
	}
}

// resolve follows an invite link, printing every state change, until the
// viewer becomes a member, the link turns out invalid, or the timeout passes.
func (c cli) resolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	join := fs.Bool("join", false, "request to join when allowed")
	timeout := fs.Duration("timeout", 2*time.Minute, "give up after this long")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errors.New(usage)
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	views := make(chan community.View, 1)
	navigated := make(chan string, 1)
	opts := append([]community.ResolverOption{
		community.OnChange(func(v community.View) { offerLatest(views, v) }),
	}, c.resolverOpts...)
	nav := community.NavigatorFunc(func(path string) {
		select {
		case navigated <- path:
		default:
		}
	})

	resolver, err := community.NewResolver(c.dir, c.sessions, nav, fs.Arg(0), opts...)
	if err != nil {
		return err
	}
	if err := resolver.Start(ctx); err != nil {
		return err
	}
	defer resolver.Stop()

	var last models.ViewState
	joined := false
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("still %s after %s", resolver.View().State, *timeout)
			}
			return ctx.Err()

		case path := <-navigated:
			fmt.Fprintf(c.out, "navigate: %s\n", path)
			return nil

		case v := <-views:
			if v.State != last {
				last = v.State
				printView(c.out, v)
			}
			switch v.State {
			case models.ViewInvalid:
				return nil
			case models.ViewLoginRequired:
				// The session is fixed for the life of the process.
				return errors.New("set SESSION_TOKEN to continue")
			case models.ViewCanRequest:
				if *join && !joined {
					joined = true
					if err := resolver.Join().Submit(ctx); err != nil {
						fmt.Fprintf(c.out, "join failed: %s\n", resolver.View().JoinError)
					}
				}
			}
		}
	}
}

// offerLatest replaces any unread view so the reader always sees the newest
// one. The resolver emits from a single goroutine, so the second send cannot
// block.
func offerLatest(ch chan community.View, v community.View) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}

func printView(w io.Writer, v community.View) {
	switch v.State {
	case models.ViewInvalid:
		msg := "this invite link is invalid or has expired"
		if v.LookupError != "" {
			msg = v.LookupError
		}
		fmt.Fprintf(w, "invalid: %s (back to %s)\n", msg, v.ReturnPath)
	case models.ViewLoginRequired:
		fmt.Fprintf(w, "login required to join %s\n", groupName(v.Group))
	case models.ViewMember:
		fmt.Fprintf(w, "member of %s\n", groupName(v.Group))
	case models.ViewAwaiting:
		fmt.Fprintf(w, "awaiting approval for %s\n", groupName(v.Group))
	case models.ViewCanRequest:
		fmt.Fprintf(w, "can request to join %s (%d members)\n", groupName(v.Group), v.Group.MembersCount)
	default:
		fmt.Fprintf(w, "%s\n", v.State)
	}
}

func groupName(g *models.Group) string {
	if g == nil {
		return "the group"
	}
	return g.Name
}

func (c cli) admin(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New(usage)
	}
	slug, action, rest := args[0], args[1], args[2:]
	console := community.NewConsole(c.dir, c.sessions, community.NavigatorFunc(func(path string) {
		fmt.Fprintf(c.out, "navigate: %s\n", path)
	}), slug, c.consoleOpts...)

	needUser := func() (string, error) {
		if len(rest) != 1 {
			return "", errors.New(usage)
		}
		return rest[0], nil
	}

	switch action {
	case "members":
		rows, err := console.Members(ctx)
		if err != nil {
			return err
		}
		for _, row := range rows {
			marker := ""
			if !row.CanRemove {
				marker = " (you)"
			}
			fmt.Fprintf(c.out, "%s\t@%s\t%s%s\n", row.User.ID, row.User.Username, row.User.Name, marker)
		}
		return nil

	case "requests":
		users, err := console.JoinRequests(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(c.out, "%s\t@%s\t%s\n", u.ID, u.Username, u.Name)
		}
		return nil

	case "accept", "reject", "remove":
		userID, err := needUser()
		if err != nil {
			return err
		}
		switch action {
		case "accept":
			err = console.Accept(ctx, userID)
		case "reject":
			err = console.Reject(ctx, userID)
		default:
			err = console.RemoveMember(ctx, userID)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s %s: done\n", action, userID)
		return nil

	case "link":
		link, err := console.InviteLink(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, link)
		return nil

	case "invite", "regenerate":
		if _, err := console.GenerateInvite(ctx); err != nil {
			return err
		}
		link, err := console.InviteLink(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, link)
		return nil

	case "rename":
		if len(rest) < 2 || len(rest) > 3 {
			return errors.New(usage)
		}
		in := community.ProfileInput{Name: rest[0], Description: rest[1]}
		if len(rest) == 3 {
			in.Icon = rest[2]
		}
		group, err := console.UpdateProfile(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "updated %s\n", group.CanonicalPath())
		return nil

	case "icon":
		if len(rest) != 1 {
			return errors.New(usage)
		}
		data, err := os.ReadFile(rest[0])
		if err != nil {
			return err
		}
		current, err := console.Group(ctx)
		if err != nil {
			return err
		}
		url, err := console.UploadIcon(ctx, rest[0], data)
		if err != nil {
			return err
		}
		group, err := console.UpdateProfile(ctx, community.ProfileInput{
			Name:        current.Name,
			Description: current.Description,
			Icon:        url,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "updated %s icon: %s\n", group.CanonicalPath(), url)
		return nil

	default:
		return errors.New(usage)
	}
}
