package models

import "fmt"

// EntityKind identifies a record type that can participate in the
// relationship graph.
type EntityKind string

const (
	EntityKindReceipt       EntityKind = "receipt"
	EntityKindReimbursement EntityKind = "reimbursement"
	EntityKindTransaction   EntityKind = "transaction"
	EntityKindBudget        EntityKind = "budget"
	EntityKindInventory     EntityKind = "inventory"
	EntityKindMinute        EntityKind = "minute"
)

// ParseEntityKind normalizes a kind string to its canonical value.
// "purchase" is a legacy alias for reimbursement.
func ParseEntityKind(s string) (EntityKind, error) {
	switch s {
	case "receipt":
		return EntityKindReceipt, nil
	case "reimbursement", "purchase":
		return EntityKindReimbursement, nil
	case "transaction":
		return EntityKindTransaction, nil
	case "budget":
		return EntityKindBudget, nil
	case "inventory":
		return EntityKindInventory, nil
	case "minute":
		return EntityKindMinute, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
}

func (k EntityKind) String() string {
	return string(k)
}

// EntityRef addresses one entity in the graph.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

// String renders the reference in the "<kind>:<id>" wire form.
func (r EntityRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// ParseEntityRef parses a "<kind>:<id>" string.
func ParseEntityRef(s string) (EntityRef, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			kind, err := ParseEntityKind(s[:i])
			if err != nil {
				return EntityRef{}, err
			}
			if i+1 >= len(s) {
				return EntityRef{}, fmt.Errorf("entity ref %q has empty id", s)
			}
			return EntityRef{Kind: kind, ID: s[i+1:]}, nil
		}
	}
	return EntityRef{}, fmt.Errorf("entity ref %q is not in kind:id form", s)
}
