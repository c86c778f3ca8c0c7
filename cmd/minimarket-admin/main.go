// Package main is the entry point for the Mini Market admin CLI.
// It works directly against the configured storage backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/auth"
	"github.com/prn-tf/minimarket/internal/config"
	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/repository"
	"github.com/prn-tf/minimarket/internal/server"
	"github.com/prn-tf/minimarket/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "version":
		fmt.Printf("Mini Market Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	case "user", "products", "offers":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if len(os.Args) < 3 {
		printUsage()
		os.Exit(1)
	}
	sub := os.Args[2]

	if err := run(command, sub, os.Args[3:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	ctx     context.Context
	cfg     *config.Config
	logger  zerolog.Logger
	repos   *repository.Repositories
	users   *service.UserService
	catalog *service.CatalogService
}

func run(command, sub string, args []string) error {
	fs := flag.NewFlagSet(command+" "+sub, flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password (user create)")
	userID := fs.Int64("id", 0, "user id (user show)")
	category := fs.String("category", "", "filter by category (products list)")
	availableOnly := fs.Bool("available", false, "only available products (products list)")
	all := fs.Bool("all", false, "include inactive offers (offers list)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == config.DriverMemory {
		return fmt.Errorf("admin commands need a persistent database; set database.driver to sqlite or postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Keep CLI output clean; only warnings and errors are logged.
	logger := server.NewLogger(cfg.Logging).Level(zerolog.WarnLevel)

	repos, err := server.OpenRepositories(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer repos.Close()

	c := &cli{ctx: ctx, cfg: cfg, logger: logger, repos: repos}
	c.catalog = service.NewCatalogService(repos.Product, repos.Offer, logger)

	switch command + " " + sub {
	case "user create":
		return c.createUser(*username, *password)
	case "user show":
		return c.showUser(*userID, *username)
	case "user list":
		return c.listUsers()
	case "products list":
		return c.listProducts(domain.ProductFilter{Category: *category, AvailableOnly: *availableOnly})
	case "offers list":
		return c.listOffers(*all)
	default:
		return fmt.Errorf("unknown command: %s %s", command, sub)
	}
}

func (c *cli) userService() (*service.UserService, error) {
	if c.users != nil {
		return c.users, nil
	}
	hasher, err := auth.NewPasswordHasher(c.cfg.Auth)
	if err != nil {
		return nil, err
	}
	c.users = service.NewUserService(service.UserServiceConfig{
		UserRepo: c.repos.User,
		CartRepo: c.repos.Cart,
		Hasher:   hasher,
		Logger:   c.logger,
	})
	return c.users, nil
}

func (c *cli) createUser(username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("-username and -password are required")
	}
	users, err := c.userService()
	if err != nil {
		return err
	}

	user, err := users.Register(c.ctx, service.RegisterInput{Username: username, Password: password})
	if err != nil {
		return err
	}
	fmt.Printf("Created user %q with id %d\n", user.Username, user.ID)
	return nil
}

func (c *cli) showUser(id int64, username string) error {
	users, err := c.userService()
	if err != nil {
		return err
	}

	var user *domain.User
	switch {
	case id > 0:
		user, err = users.GetByID(c.ctx, id)
	case username != "":
		user, err = users.GetByUsername(c.ctx, username)
	default:
		return fmt.Errorf("-id or -username is required")
	}
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %d\n", user.ID)
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Created:  %s\n", user.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func (c *cli) listUsers() error {
	users, err := c.userService()
	if err != nil {
		return err
	}
	list, err := users.List(c.ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tCREATED")
	for _, u := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Username, u.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func (c *cli) listProducts(filter domain.ProductFilter) error {
	products, err := c.catalog.ListProducts(c.ctx, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tUNIT\tCATEGORY\tAVAILABLE")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\n", p.ID, p.Name, p.Price.StringFixed(2), p.Unit, p.Category, p.IsAvailable)
	}
	return w.Flush()
}

func (c *cli) listOffers(includeInactive bool) error {
	offers, err := c.catalog.ListOffers(c.ctx, includeInactive)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tOLD\tNEW\tACTIVE")
	for _, o := range offers {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", o.ID, o.Title, o.OldPrice.StringFixed(2), o.NewPrice.StringFixed(2), o.IsActive)
	}
	return w.Flush()
}

func printUsage() {
	fmt.Println(`Mini Market Admin CLI

Usage:
  minimarket-admin <command> <subcommand> [flags]

Commands:
  user create   Create a user (-username, -password)
  user show     Show a user (-id or -username)
  user list     List all users
  products list List products (-category, -available)
  offers list   List offers (-all includes inactive)
  version       Print version information
  help          Show this help message

All commands accept -config <path>. The database is selected by the
database.* configuration and must be sqlite or postgres.

Examples:
  minimarket-admin user create -username alice -password s3cret!
  minimarket-admin user show -username alice
  minimarket-admin products list -category dairy -available`)
}
