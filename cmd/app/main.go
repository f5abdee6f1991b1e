package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/atvirokodosprendimai/carcrm/internal/config"
	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "carcrm",
		Usage: "Car sales pipeline server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			migrateCommand(),
			configCommand(),
			principalsCommand(),
			authCommand(),
			clientsCommand(),
			opportunitiesCommand(),
			notesCommand(),
			carsCommand(),
			auditCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Server configuration helpers",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a default configuration file",
				Flags: []cli.Flag{&cli.StringFlag{Name: "path", Value: "carcrm.toml"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					if err := config.Init(c.String("path"), config.Default()); err != nil {
						return err
					}
					fmt.Printf("wrote %s\n", c.String("path"))
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Flags: serverFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadServerConfig(c)
					if err != nil {
						return err
					}
					return config.Write(os.Stdout, cfg)
				},
			},
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Verify an API token and store it for later commands",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Value: defaultTransport, Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Value: defaultServer},
					&cli.StringFlag{Name: "socket", Value: defaultSocket},
					&cli.StringFlag{Name: "token", Required: true, Usage: "token printed by \"principals token\""},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{
						Transport: c.String("transport"),
						Server:    c.String("server"),
						Socket:    c.String("socket"),
						Token:     c.String("token"),
					}
					var out struct {
						Email string `json:"email"`
					}
					if err := opWhoAmI.do(ctx, cfg, nil, &out); err != nil {
						return err
					}
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s\n", out.Email)
					return nil
				},
			},
			{
				Name:  "whoami",
				Usage: "Show the principal behind the stored token",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						ID    int64  `json:"id"`
						Email string `json:"email"`
						Name  string `json:"name"`
					}
					if err := opWhoAmI.do(ctx, cfg, nil, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printKV([][2]string{{"id", formatID(out.ID)}, {"email", out.Email}, {"name", out.Name}})
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Forget the stored token",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					cfg.Token = ""
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Show your audit trail",
		Flags: []cli.Flag{&cli.IntFlag{Name: "limit", Value: 50}, jsonFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out []domain.AuditLog
			if err := opAudit.do(ctx, cfg, map[string]any{"limit": c.Int("limit")}, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printAuditLogs(out)
			return nil
		},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}
}
