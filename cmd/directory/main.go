package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"campus-community/src/api"
	"campus-community/src/auth"
	"campus-community/src/lib"
	"campus-community/src/models"
)

const usage = `usage:
  directory                                   run the directory server
  directory issue-token <user-id>             mint a development credential
  directory create-user <name> <username>     register a user
  directory create-group <owner-id> <PUBLIC|PRIVATE|RESTRICTED> <name> [description]`

func main() {
	cfg, err := lib.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	args := os.Args[1:]
	if len(args) == 0 || args[0] == "serve" {
		if err := serve(cfg); err != nil {
			log.Fatalf("server exited with error: %v", err)
		}
		return
	}

	if err := runCommand(cfg, args); err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func serve(cfg lib.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := api.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("shutting down directory server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runCommand(cfg lib.Config, args []string) error {
	switch args[0] {
	case "issue-token":
		if len(args) != 2 {
			return errors.New(usage)
		}
		token, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL()).Issue(args[1])
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil

	case "create-user", "create-group":
		ctx := context.Background()
		server, err := api.NewServer(ctx, cfg)
		if err != nil {
			return fmt.Errorf("bootstrap server: %w", err)
		}
		defer func() { _ = server.Shutdown(ctx) }()
		svc := server.Service()

		if args[0] == "create-user" {
			if len(args) != 3 {
				return errors.New(usage)
			}
			user, err := svc.RegisterUser(ctx, args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%s\n", user.ID, user.Username, user.Name)
			return nil
		}

		if len(args) < 4 || len(args) > 5 {
			return errors.New(usage)
		}
		description := ""
		if len(args) == 5 {
			description = args[4]
		}
		group, err := svc.CreateGroup(ctx, args[1], args[3], description, models.GroupType(args[2]))
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\n", group.ID, group.CanonicalPath(), group.Type)
		if group.InviteToken != nil {
			fmt.Println(models.InviteLink(cfg.PublicOrigin, *group.InviteToken))
		}
		return nil

	default:
		return errors.New(usage)
	}
}
