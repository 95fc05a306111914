// Package suggest ranks inventory items and quantities for order entry from
// the order history.
package suggest

import (
	"sort"
	"strings"

	"github.com/vbonduro/pharmaflow/internal/domain"
)

const MaxQuantities = 5

// ItemOption is one inventory entry in ranked order. Frequency counts how
// often the selected customer ordered the item and is zero otherwise.
type ItemOption struct {
	ID        string `json:"id"`
	ItemName  string `json:"itemName"`
	UnitType  string `json:"unitType"`
	Frequency int    `json:"frequency,omitempty"`
}

// RankItems puts items the customer ordered before first, then the rest by
// how often anyone ordered them, then alphabetically.
func RankItems(inventory []domain.InventoryItem, orders []domain.Order, customer string) []ItemOption {
	global := make(map[string]int)
	mine := make(map[string]int)
	for _, o := range orders {
		for _, it := range o.Items {
			global[it.ItemName]++
			if customer != "" && o.CustomerName == customer {
				mine[it.ItemName]++
			}
		}
	}

	ranked := make([]domain.InventoryItem, len(inventory))
	copy(ranked, inventory)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		ha, hb := mine[a.ItemName] > 0, mine[b.ItemName] > 0
		if ha != hb {
			return ha
		}
		if global[a.ItemName] != global[b.ItemName] {
			return global[a.ItemName] > global[b.ItemName]
		}
		la, lb := strings.ToLower(a.ItemName), strings.ToLower(b.ItemName)
		if la != lb {
			return la < lb
		}
		return a.ItemName < b.ItemName
	})

	out := make([]ItemOption, 0, len(ranked))
	for _, it := range ranked {
		out = append(out, ItemOption{
			ID:        it.ID,
			ItemName:  it.ItemName,
			UnitType:  it.UnitType,
			Frequency: mine[it.ItemName],
		})
	}
	return out
}

// Quantities returns the distinct quantities the customer used for item, in
// the order they first appear, capped at MaxQuantities.
func Quantities(orders []domain.Order, customer, item string) []string {
	if customer == "" || item == "" {
		return []string{}
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, o := range orders {
		if o.CustomerName != customer {
			continue
		}
		for _, it := range o.Items {
			if it.ItemName != item || seen[it.Quantity] {
				continue
			}
			seen[it.Quantity] = true
			out = append(out, it.Quantity)
			if len(out) == MaxQuantities {
				return out
			}
		}
	}
	return out
}
