package grouping

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
)

// Unit is one serialized item picked for deletion.
type Unit struct {
	ItemID       int64
	SerialNumber string
}

// Deletion is a validated request to remove some units of a group.
type Deletion struct {
	ItemTypeID int64
	GroupSize  int
	Units      []Unit
	Notes      string
}

// PlanSerialDeletion validates a batch serial deletion against the group in
// one pass. All problems are reported together as INVALID_SELECTION. Units
// keep the caller's order.
func PlanSerialDeletion(row Row, serials []string, notes string) (*Deletion, error) {
	notes = strings.TrimSpace(notes)

	var errs error
	if !row.ItemType.IsSerialized {
		errs = multierr.Append(errs, fmt.Errorf("item type %q is not serialized", row.ItemType.DisplayName()))
	}

	selected := make([]Unit, 0, len(serials))
	seen := make(map[string]struct{}, len(serials))
	for _, raw := range serials {
		serial := strings.TrimSpace(raw)
		if serial == "" {
			continue
		}
		if _, dup := seen[serial]; dup {
			errs = multierr.Append(errs, fmt.Errorf("serial %q selected more than once", serial))
			continue
		}
		seen[serial] = struct{}{}

		id, ok := row.ItemIDForSerial(serial)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("serial %q is not part of %q", serial, row.ItemType.DisplayName()))
			continue
		}
		selected = append(selected, Unit{ItemID: id, SerialNumber: serial})
	}

	if len(seen) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("no serial numbers selected"))
	}
	if row.ItemCount > 0 && len(selected) >= row.ItemCount {
		errs = multierr.Append(errs, fmt.Errorf("all %d units selected; delete the item type instead", row.ItemCount))
	}
	if notes == "" {
		errs = multierr.Append(errs, fmt.Errorf("a reason is required"))
	}

	if errs != nil {
		problems := multierr.Errors(errs)
		messages := make([]string, 0, len(problems))
		for _, problem := range problems {
			messages = append(messages, problem.Error())
		}
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSelection, strings.Join(messages, "; ")).
			WithDetails(map[string]any{"problems": messages})
	}

	return &Deletion{
		ItemTypeID: row.ItemType.ID,
		GroupSize:  row.ItemCount,
		Units:      selected,
		Notes:      notes,
	}, nil
}
