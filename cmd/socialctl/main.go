// Command socialctl drives the client SDK from a terminal.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedsync/config"
	"github.com/d60-Lab/feedsync/internal/metrics"
	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/service"
	"github.com/d60-Lab/feedsync/internal/session"
	"github.com/d60-Lab/feedsync/pkg/database"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

const SocialCtlVersion = "0.1.0"

var Out = log.New(os.Stdout, "", 0)

func main() {
	usage := `Feedsync client.

Usage:
    socialctl join <user> <password> [--nick=<nick>]
    socialctl login <user> <password>
    socialctl logout
    socialctl feed [--pages=<pages>]
    socialctl post <body>
    socialctl like <post_id>
    socialctl comments <post_id>
    socialctl comment <post_id> <text>
    socialctl profile [<user>]
    socialctl follow <user>
    socialctl followers [<user>]
    socialctl following [<user>]
    socialctl search <keyword>
    socialctl alarms
    socialctl rooms
    socialctl room <user>
    socialctl chat <room_id> [<message>] [--wait=<wait>]

Options:
    -h --help          Show this screen.
    --version          Show version.
    --nick=<nick>      Nick name, defaults to the user name.
    --pages=<pages>    Feed pages to load [default: 1].
    --wait=<wait>      How long to stay in the room for live messages [default: 0s].`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], SocialCtlVersion)
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err == nil {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()
	deps, err := setup(ctx, cfg)
	if err == nil {
		err = dispatch(ctx, deps, opts)
	}
	if err != nil {
		sentry.CaptureException(err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup(ctx context.Context, cfg *config.Config) (service.Deps, error) {
	var db *gorm.DB
	if cfg.Session.Store == "database" {
		var err error
		if db, err = database.InitDB(cfg); err != nil {
			return service.Deps{}, err
		}
	}
	store, err := session.NewStore(cfg.Session, db)
	if err != nil {
		return service.Deps{}, err
	}
	sess := session.NewManager(store)
	// no saved login is fine for join/login
	_, _ = sess.Restore(ctx)
	return service.NewDeps(cfg, sess, metrics.Nop), nil
}

func dispatch(ctx context.Context, d service.Deps, opts docopt.Opts) error {
	is := func(cmd string) bool {
		v, _ := opts.Bool(cmd)
		return v
	}
	str := func(key string) string {
		v, _ := opts.String(key)
		return v
	}

	switch {
	case is("join"):
		return join(ctx, d, str("<user>"), str("<password>"), str("--nick"))
	case is("login"):
		id, err := service.NewAuth(d).Login(ctx, str("<user>"), str("<password>"))
		if err != nil {
			return err
		}
		Out.Printf("logged in as %s until %s", id.UserName, id.ExpiresAt.Format(time.RFC3339))
		return nil
	case is("logout"):
		return service.NewAuth(d).Logout(ctx)
	case is("feed"):
		pages, err := strconv.Atoi(str("--pages"))
		if err != nil || pages < 1 {
			pages = 1
		}
		return feed(ctx, d, pages)
	case is("post"):
		return d.API.CreatePost(ctx, model.PostCreateRequest{Body: str("<body>")})
	case is("like"):
		id, err := parseID(str("<post_id>"))
		if err != nil {
			return err
		}
		return like(ctx, d, id)
	case is("comments"):
		id, err := parseID(str("<post_id>"))
		if err != nil {
			return err
		}
		return comments(ctx, d, id)
	case is("comment"):
		id, err := parseID(str("<post_id>"))
		if err != nil {
			return err
		}
		c := service.NewComments(d, id)
		defer c.Close()
		return c.Add(ctx, str("<text>"))
	case is("profile"):
		return profile(ctx, d, str("<user>"))
	case is("follow"):
		return follow(ctx, d, str("<user>"))
	case is("followers"):
		return follows(ctx, d, str("<user>"), service.Followers, service.MyFollowers)
	case is("following"):
		return follows(ctx, d, str("<user>"), service.Following, service.MyFollowing)
	case is("search"):
		return search(ctx, d, str("<keyword>"))
	case is("alarms"):
		return alarms(ctx, d)
	case is("rooms"):
		return rooms(ctx, d)
	case is("room"):
		chat, err := service.NewChatRooms(d).Create(ctx, str("<user>"))
		if err != nil {
			return err
		}
		Out.Printf("room %d", chat.ChatNo)
		return nil
	case is("chat"):
		id, err := parseID(str("<room_id>"))
		if err != nil {
			return err
		}
		wait, err := time.ParseDuration(str("--wait"))
		if err != nil {
			return err
		}
		return chat(ctx, d, id, str("<message>"), wait)
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
