package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/angelmondragon/auditmagic/internal/grouping"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printKV(w io.Writer, rows [][2]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

func printTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func printItemType(w io.Writer, t *models.ItemType) error {
	return printKV(w, [][2]string{
		{"id", fmt.Sprint(t.ID)},
		{"name", t.Name},
		{"sub_type", t.SubType},
		{"serialized", fmt.Sprint(t.IsSerialized)},
		{"details", t.Details},
	})
}

func printItem(w io.Writer, item *models.Item) error {
	return printKV(w, [][2]string{
		{"id", fmt.Sprint(item.ID)},
		{"type_id", fmt.Sprint(item.ItemTypeID)},
		{"quantity", fmt.Sprint(item.Quantity)},
		{"serial", item.Serial()},
		{"location", item.Location},
		{"condition", item.Condition},
	})
}

func printGroups(w io.Writer, rows []grouping.Row) error {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, []string{
			fmt.Sprint(row.ItemType.ID),
			row.ItemType.Name,
			row.ItemType.SubType,
			fmt.Sprint(row.ItemCount),
			fmt.Sprint(row.TotalQuantity),
			strings.Join(row.SerialNumbers, ","),
			strings.Join(row.Locations, ","),
		})
	}
	return printTable(w, []string{"TYPE", "NAME", "SUB_TYPE", "ITEMS", "QUANTITY", "SERIALS", "LOCATIONS"}, out)
}

func printLedger(w io.Writer, entries []models.Transaction) error {
	out := make([][]string, 0, len(entries))
	for _, e := range entries {
		serial := ""
		if e.SerialNumber != nil {
			serial = *e.SerialNumber
		}
		out = append(out, []string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			fmt.Sprint(e.ItemTypeID),
			string(e.TransactionType),
			fmt.Sprintf("%+d", e.QuantityChange),
			fmt.Sprintf("%d->%d", e.QuantityBefore, e.QuantityAfter),
			serial,
			e.Notes,
		})
	}
	return printTable(w, []string{"AT", "TYPE", "KIND", "CHANGE", "QUANTITY", "SERIAL", "NOTES"}, out)
}
