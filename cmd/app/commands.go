package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
	"github.com/atvirokodosprendimai/carcrm/internal/pagination"
	"github.com/urfave/cli/v3"
)

// remote runs o with the stored CLI config and prints the result with show
// unless --json was given.
func remote[T any](ctx context.Context, c *cli.Command, o op, params map[string]any, show func(T)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var out T
	if err := o.do(ctx, cfg, params, &out); err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(out)
	}
	show(out)
	return nil
}

// collect copies the flags the user actually set into params under their
// snake_case names.
func collect(c *cli.Command, params map[string]any, names ...string) map[string]any {
	if params == nil {
		params = map[string]any{}
	}
	for _, name := range names {
		if !c.IsSet(name) {
			continue
		}
		params[strings.ReplaceAll(name, "-", "_")] = c.Value(name)
	}
	return params
}

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Usage: "page size, 1-100"},
		&cli.IntFlag{Name: "cursor", Usage: "next cursor from the previous page"},
	}
}

func printPage[T any](show func([]T)) func(pagination.Page[T]) {
	return func(p pagination.Page[T]) {
		show(p.Items)
		printNextCursor(p.NextCursor)
	}
}

func idFlag() cli.Flag {
	return &cli.IntFlag{Name: "id", Required: true}
}

func clientsCommand() *cli.Command {
	return &cli.Command{
		Name:  "clients",
		Usage: "Client commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List clients, most urgent first",
				Flags: append(pageFlags(), &cli.StringFlag{Name: "urgency"}, &cli.StringFlag{Name: "q"}, jsonFlag()),
				Action: func(ctx context.Context, c *cli.Command) error {
					params := collect(c, nil, "limit", "cursor", "urgency", "q")
					return remote(ctx, c, opClientsList, params, printPage(printClients))
				},
			},
			{
				Name:  "create",
				Usage: "Create a client",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "phone"},
					&cli.StringFlag{Name: "urgency", Usage: "LOW, NORMAL or HIGH"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					params := collect(c, nil, "name", "email", "phone", "urgency")
					return remote(ctx, c, opClientsCreate, params, func(v domain.Client) { printClients([]domain.Client{v}) })
				},
			},
			{
				Name:  "get",
				Usage: "Show a client with its opportunities",
				Flags: []cli.Flag{idFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return remote(ctx, c, opClientsGet, collect(c, nil, "id"), printClientDetail)
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a client without opportunities",
				Flags: []cli.Flag{idFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return remote(ctx, c, opClientsDelete, collect(c, nil, "id"), func(map[string]any) { fmt.Println("deleted") })
				},
			},
			{
				Name:  "search",
				Usage: "Search clients by name, email or phone",
				Flags: []cli.Flag{&cli.StringFlag{Name: "q", Required: true}, &cli.IntFlag{Name: "limit"}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return remote(ctx, c, opClientsSearch, collect(c, nil, "q", "limit"), printClients)
				},
			},
			{
				Name:  "urgent",
				Usage: "List HIGH urgency clients, longest untouched first",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return remote(ctx, c, opClientsUrgent, nil, printUrgentClients)
				},
			},
			{
				Name:  "stats",
				Usage: "Client statistics",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return remote(ctx, c, opClientsStats, nil, printClientStats)
				},
			},
		},
	}
}

func opportunitiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "opportunities",
		Usage: "Opportunity commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List opportunities, most urgent first",
				Flags: append(pageFlags(),
					&cli.StringFlag{Name: "stage"},
					&cli.StringFlag{Name: "urgency"},
					&cli.IntFlag{Name: "client-id"},
					jsonFlag(),
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					params := collect(c, nil, "limit", "cursor", "stage", "urgency", "client-id")
					return remote(ctx, c, opOpportunitiesList, params, printPage(printOpportunities))
				},
			},
			{
				Name:  "create",
				Usage: "Open an opportunity for a client",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "client-id", Required: true},
					&cli.StringFlag{Name: "car-label", Required: true},
					&cli.IntFlag{Name: "car-model-id", Usage: "catalog car id"},
					&cli.StringFlag{Name: "stage"},
					&cli.StringFlag{Name: "urgency"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					params := collect(c, nil, "client-id", "car-label", "car-model-id", "stage", "urgency")
					return remote(ctx, c, opOpportunitiesCreate, params, func(v domain.Opportunity) { printOpportunities([]domain.Opportunity{v}) })
				},
			},
			{
				Name:  "stage",
				Usage: "Move an opportunity to another stage",
				Flags: []cli.Flag{idFlag(), &cli.StringFlag{Name: "stage", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					params := collect(c, nil, "id", "stage")
					return remote(ctx, c, opOpportunitiesStage, params, func(v domain.Opportunity) { printOpportunities([]domain.Opportunity{v}) })
				},
			},
			{
				Name:  "delete",
				Usage: "Delete an opportunity and its notes",
				Flags: []cli.Flag{idFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return remote(ctx, c, opOpportunitiesDelete, collect(c, nil, "id"), func(map[string]any) { fmt.Println("deleted") })
				},
			},
			{
				Name:  "stats",
				Usage: "Opportunity statistics",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return remote(ctx, c, opOpportunitiesStats, nil, printOpportunityStats)
				},
			},
		},
	}
}

func notesCommand() *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "Note commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notes, newest first",
				Flags: append(pageFlags(), &cli.IntFlag{Name: "opportunity-id"}, &cli.StringFlag{Name: "q"}, jsonFlag()),
				Action: func(ctx context.Context, c *cli.Command) error {
					params := collect(c, nil, "limit", "cursor", "opportunity-id", "q")
					return remote(ctx, c, opNotesList, params, printPage(printNotes))
				},
			},
			{
				Name:  "create",
				Usage: "Add a note to an opportunity",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "opportunity-id", Required: true},
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "content", Required: true},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					params := collect(c, nil, "opportunity-id", "title", "content")
					return remote(ctx, c, opNotesCreate, params, func(v domain.Note) { printNotes([]domain.Note{v}) })
				},
			},
			{
				Name:  "delete",
				Usage: "Delete notes; either all of them or none",
				Flags: []cli.Flag{&cli.StringFlag{Name: "ids", Required: true, Usage: "comma separated note ids"}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					ids, err := parseIDs(c.String("ids"))
					if err != nil {
						return err
					}
					return remote(ctx, c, opNotesDeleteMany, map[string]any{"ids": ids}, func(v struct {
						Deleted int64 `json:"deleted"`
					}) {
						fmt.Printf("deleted %d notes\n", v.Deleted)
					})
				},
			},
			{
				Name:  "stats",
				Usage: "Note statistics",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return remote(ctx, c, opNotesStats, nil, printNoteStats)
				},
			},
		},
	}
}

func carsCommand() *cli.Command {
	return &cli.Command{
		Name:  "cars",
		Usage: "Car catalog commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List catalog cars",
				Flags: append(pageFlags(), &cli.StringFlag{Name: "brand"}, &cli.StringFlag{Name: "q"}, jsonFlag()),
				Action: func(ctx context.Context, c *cli.Command) error {
					params := collect(c, nil, "limit", "cursor", "brand", "q")
					return remote(ctx, c, opCarsList, params, printPage(printCars))
				},
			},
			{
				Name:  "create",
				Usage: "Register a car model",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "brand", Required: true},
					&cli.StringFlag{Name: "model", Required: true},
					&cli.StringFlag{Name: "version"},
					&cli.IntFlag{Name: "year"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					params := collect(c, nil, "brand", "model", "version", "year")
					return remote(ctx, c, opCarsCreate, params, func(v domain.Car) { printCars([]domain.Car{v}) })
				},
			},
			{
				Name:  "brands",
				Usage: "List catalog brands",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return remote(ctx, c, opCarsBrands, nil, printBrands)
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a car no opportunity refers to",
				Flags: []cli.Flag{idFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return remote(ctx, c, opCarsDelete, collect(c, nil, "id"), func(map[string]any) { fmt.Println("deleted") })
				},
			},
			{
				Name:  "stats",
				Usage: "Catalog statistics",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return remote(ctx, c, opCarsStats, nil, printCarStats)
				},
			},
		},
	}
}

func parseIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid note id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one note id is required")
	}
	return ids, nil
}
