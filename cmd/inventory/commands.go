package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/angelmondragon/auditmagic/api/validators"
	"github.com/angelmondragon/auditmagic/internal/app"
	"github.com/angelmondragon/auditmagic/internal/grouping"
	"github.com/angelmondragon/auditmagic/internal/items"
	"github.com/angelmondragon/auditmagic/internal/itemtypes"
	"github.com/angelmondragon/auditmagic/internal/ledger"
	"github.com/angelmondragon/auditmagic/pkg/enums"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"github.com/angelmondragon/auditmagic/pkg/pagination"
)

// opener yields the services for one command and a func releasing them.
type opener func(ctx context.Context) (*app.Services, func() error, error)

type action func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error

func withStore(open opener, fn action) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		svcs, release, err := open(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = release() }()
		return fn(ctx, c, svcs, c.Root().Writer)
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}
}

func newRootCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:  "inventory",
		Usage: "Inventory store and audit ledger",
		Commands: []*cli.Command{
			typeCommand(open),
			unitCommand(open),
			bulkCommand(open),
			groupCommand(open),
			ledgerCommand(open),
			searchCommand(open),
		},
	}
}

func typeCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:  "type",
		Usage: "Item type registry",
		Commands: []*cli.Command{
			{
				Name:  "resolve",
				Usage: "Find a type by name and sub type, creating it when missing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "sub-type"},
					&cli.BoolFlag{Name: "serialized", Usage: "units carry serial numbers"},
					&cli.StringFlag{Name: "details"},
					jsonFlag(),
				},
				Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
					itemType, err := svcs.Types.ResolveOrCreate(ctx, itemtypes.ResolveInput{
						Name:         c.String("name"),
						SubType:      c.String("sub-type"),
						IsSerialized: c.Bool("serialized"),
						Details:      c.String("details"),
					})
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(w, itemType)
					}
					return printItemType(w, itemType)
				}),
			},
			{
				Name:  "lookup",
				Usage: "Find a type by name and sub type without creating it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "sub-type"},
					jsonFlag(),
				},
				Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
					itemType, found, err := svcs.Types.Lookup(ctx, c.String("name"), c.String("sub-type"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(w, map[string]any{"found": found, "item_type": itemType})
					}
					if !found {
						_, err := fmt.Fprintln(w, "not found")
						return err
					}
					return printItemType(w, itemType)
				}),
			},
			{
				Name:  "list",
				Usage: "List every item type",
				Flags: []cli.Flag{jsonFlag()},
				Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
					types, err := svcs.Types.List(ctx)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(w, types)
					}
					rows := make([][]string, 0, len(types))
					for _, t := range types {
						rows = append(rows, []string{fmt.Sprint(t.ID), t.Name, t.SubType, fmt.Sprint(t.IsSerialized)})
					}
					return printTable(w, []string{"ID", "NAME", "SUB_TYPE", "SERIALIZED"}, rows)
				}),
			},
			{
				Name:  "delete",
				Usage: "Delete a type with its items and ledger history",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Required: true},
					jsonFlag(),
				},
				Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
					result, err := svcs.Types.Delete(ctx, c.Int64("id"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(w, result)
					}
					_, err = fmt.Fprintf(w, "deleted type %d: %d items, %d ledger entries\n",
						result.TypeID, result.ItemsDeleted, result.TransactionsDeleted)
					return err
				}),
			},
		},
	}
}

func unitCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:  "unit",
		Usage: "Serialized units",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create one serialized unit",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "type-id", Required: true},
					&cli.StringFlag{Name: "serial", Required: true},
					&cli.StringFlag{Name: "location"},
					&cli.StringFlag{Name: "condition"},
					&cli.StringFlag{Name: "notes"},
					jsonFlag(),
				},
				Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
					item, err := svcs.Items.CreateSerializedUnit(ctx, items.CreateUnitInput{
						TypeID:       c.Int64("type-id"),
						SerialNumber: c.String("serial"),
						Location:     c.String("location"),
						Condition:    c.String("condition"),
						Notes:        c.String("notes"),
					})
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(w, item)
					}
					return printItem(w, item)
				}),
			},
			{
				Name:  "delete",
				Usage: "Delete some units of a serialized group",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "type-id", Required: true},
					&cli.StringSliceFlag{Name: "serial", Required: true, Usage: "repeat for each unit"},
					&cli.StringFlag{Name: "notes", Required: true},
				},
				Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
					n, err := svcs.Items.DeleteSerializedUnits(ctx, c.Int64("type-id"), c.StringSlice("serial"), c.String("notes"))
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(w, "deleted %d units\n", n)
					return err
				}),
			},
		},
	}
}

func bulkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{Name: "type-id", Required: true},
		&cli.IntFlag{Name: "quantity", Required: true},
		&cli.StringFlag{Name: "location"},
		&cli.StringFlag{Name: "condition"},
		&cli.StringFlag{Name: "notes"},
		jsonFlag(),
	}
}

func bulkInput(c *cli.Command) items.CreateBulkInput {
	return items.CreateBulkInput{
		TypeID:    c.Int64("type-id"),
		Quantity:  c.Int("quantity"),
		Location:  c.String("location"),
		Condition: c.String("condition"),
		Notes:     c.String("notes"),
	}
}

func bulkCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:  "bulk",
		Usage: "Bulk stock",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a new bulk row",
				Flags: bulkFlags(),
				Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
					item, err := svcs.Items.CreateBulk(ctx, bulkInput(c))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(w, item)
					}
					return printItem(w, item)
				}),
			},
			{
				Name:  "merge",
				Usage: "Add to the row with the same location and condition, or create one",
				Flags: bulkFlags(),
				Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
					result, err := svcs.Items.CreateOrMergeBulk(ctx, bulkInput(c))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(w, result)
					}
					verb := "created"
					if result.Merged {
						verb = "merged"
					}
					if _, err := fmt.Fprintln(w, verb); err != nil {
						return err
					}
					return printItem(w, result.Item)
				}),
			},
			{
				Name:  "remove",
				Usage: "Take stock off a bulk row",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "item-id", Required: true},
					&cli.IntFlag{Name: "amount", Required: true},
					&cli.StringFlag{Name: "notes"},
					jsonFlag(),
				},
				Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
					item, err := svcs.Items.RemoveQuantity(ctx, c.Int64("item-id"), c.Int("amount"), c.String("notes"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(w, item)
					}
					return printItem(w, item)
				}),
			},
		},
	}
}

func groupCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:  "group",
		Usage: "Show grouped rows, one per item type",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "type-id", Usage: "show a single type"},
			&cli.BoolFlag{Name: "serialized", Usage: "only serialized types"},
			jsonFlag(),
		},
		Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
			if typeID := c.Int64("type-id"); typeID > 0 {
				row, err := svcs.Grouping.GroupByType(ctx, typeID)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(w, row)
				}
				return printGroups(w, []grouping.Row{*row})
			}
			rows, err := svcs.Grouping.ListGroups(ctx, c.Bool("serialized"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(w, rows)
			}
			return printGroups(w, rows)
		}),
	}
}

func ledgerCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Show ledger entries oldest first, or the newest entries when no type is given",
		Flags: []cli.Flag{
			&cli.Int64SliceFlag{Name: "type-id", Usage: "repeat for several types"},
			&cli.StringFlag{Name: "from", Usage: "date or RFC3339 timestamp"},
			&cli.StringFlag{Name: "to", Usage: "date or RFC3339 timestamp, dates include the whole day"},
			&cli.IntFlag{Name: "limit"},
			&cli.StringFlag{Name: "cursor"},
			jsonFlag(),
		},
		Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
			limit := c.Int("limit")
			if limit < 0 || limit > pagination.MaxLimit {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "limit must be between 0 and %d", pagination.MaxLimit)
			}

			typeIDs := c.Int64Slice("type-id")
			if len(typeIDs) == 0 {
				recent, err := svcs.Ledger.Recent(ctx, limit)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(w, ledger.Page{Transactions: recent})
				}
				return printLedger(w, recent)
			}

			from, err := validators.ParseTimeBound("from", c.String("from"), false)
			if err != nil {
				return err
			}
			to, err := validators.ParseTimeBound("to", c.String("to"), true)
			if err != nil {
				return err
			}
			page, err := svcs.Ledger.QueryByTypes(ctx, ledger.Query{
				TypeIDs: typeIDs,
				Range:   ledger.DateRange{From: from, To: to},
				Params:  pagination.Params{Limit: limit, Cursor: c.String("cursor")},
			})
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(w, page)
			}
			if err := printLedger(w, page.Transactions); err != nil {
				return err
			}
			if page.NextCursor != "" {
				_, err = fmt.Fprintf(w, "next cursor: %s\n", page.NextCursor)
			}
			return err
		}),
	}
}

func searchCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search items by type name, sub type, details or serial number",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "field", Usage: "item_type, sub_type, details or serial_number"},
			&cli.BoolFlag{Name: "record", Value: true, Usage: "remember the query in search history"},
			jsonFlag(),
		},
		Action: withStore(open, func(ctx context.Context, c *cli.Command, svcs *app.Services, w io.Writer) error {
			field, err := enums.ParseSearchField(c.String("field"))
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid search field")
			}
			query := c.Args().First()

			hits, err := svcs.Search.Search(ctx, query, field, 0)
			if err != nil {
				return err
			}
			if c.Bool("record") {
				if _, err := svcs.Search.RecordSearch(ctx, query, field); err != nil {
					return err
				}
			}
			if c.Bool("json") {
				return printJSON(w, hits)
			}
			rows := make([][]string, 0, len(hits))
			for _, hit := range hits {
				rows = append(rows, []string{
					fmt.Sprint(hit.Item.ID),
					hit.ItemType.Name,
					hit.ItemType.SubType,
					hit.Item.Serial(),
					fmt.Sprint(hit.Item.Quantity),
					hit.Item.Location,
				})
			}
			return printTable(w, []string{"ITEM", "NAME", "SUB_TYPE", "SERIAL", "QUANTITY", "LOCATION"}, rows)
		}),
	}
}
