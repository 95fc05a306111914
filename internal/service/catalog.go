package service

import (
	"fmt"
	"io"
	"maps"
	"strconv"
	"strings"

	expmaps "golang.org/x/exp/maps"

	"github.com/vbonduro/pharmaflow/internal/domain"
	"github.com/vbonduro/pharmaflow/internal/sheet"
	"github.com/vbonduro/pharmaflow/internal/syncer"
)

var defaultUnits = []string{"Packets", "Boxes", "Cases"}

func containsFold(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func (s *Service) Inventory() []domain.InventoryItem {
	return s.inventory.Items()
}

func (s *Service) AddInventoryItem(item domain.InventoryItem) (domain.InventoryItem, *syncer.Write, error) {
	item.ItemName = strings.TrimSpace(item.ItemName)
	if item.ItemName == "" {
		return domain.InventoryItem{}, nil, fmt.Errorf("%w: item name is required", ErrInvalid)
	}
	if item.Quantity < 0 {
		return domain.InventoryItem{}, nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalid)
	}
	for k := range item.Extra {
		if err := checkExtraKey(k); err != nil {
			return domain.InventoryItem{}, nil, err
		}
	}
	item.ID = ""
	return s.inventory.Add(item)
}

// InventoryPatch holds the fields to change; nil fields are left alone.
// Extra entries set a custom column, or remove it when the value is nil.
type InventoryPatch struct {
	ItemName *string            `json:"itemName"`
	Company  *string            `json:"company"`
	UnitType *string            `json:"unitType"`
	Quantity *int               `json:"quantity"`
	Extra    map[string]*string `json:"extra"`
}

var inventoryFields = map[string]bool{
	"id": true, "itemName": true, "company": true, "unitType": true, "quantity": true,
}

func checkExtraKey(k string) error {
	if strings.TrimSpace(k) == "" {
		return fmt.Errorf("%w: extra column needs a name", ErrInvalid)
	}
	if inventoryFields[k] {
		return fmt.Errorf("%w: %q is not an extra column", ErrInvalid, k)
	}
	return nil
}

func (s *Service) UpdateInventoryItem(id string, p InventoryPatch) (domain.InventoryItem, *syncer.Write, error) {
	if p.ItemName != nil && strings.TrimSpace(*p.ItemName) == "" {
		return domain.InventoryItem{}, nil, fmt.Errorf("%w: item name is required", ErrInvalid)
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return domain.InventoryItem{}, nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalid)
	}
	for k := range p.Extra {
		if err := checkExtraKey(k); err != nil {
			return domain.InventoryItem{}, nil, err
		}
	}
	return modify(s.inventory, id, func(it domain.InventoryItem) (domain.InventoryItem, error) {
		if p.ItemName != nil {
			it.ItemName = strings.TrimSpace(*p.ItemName)
		}
		if p.Company != nil {
			it.Company = *p.Company
		}
		if p.UnitType != nil {
			it.UnitType = *p.UnitType
		}
		if p.Quantity != nil {
			it.Quantity = *p.Quantity
		}
		if len(p.Extra) > 0 {
			// it.Extra is shared with the confirmed value; never edit it in place.
			extra := make(map[string]string, len(it.Extra)+len(p.Extra))
			maps.Copy(extra, it.Extra)
			for k, v := range p.Extra {
				if v == nil {
					delete(extra, k)
					continue
				}
				extra[k] = *v
			}
			if len(extra) == 0 {
				extra = nil
			}
			it.Extra = extra
		}
		return it, nil
	})
}

func (s *Service) DeleteInventoryItem(id string) (*syncer.Write, error) {
	return remove(s.inventory, id)
}

// ImportInventory prepends items in the given order. Existing ids are kept.
func (s *Service) ImportInventory(items []domain.InventoryItem) ([]domain.InventoryItem, *syncer.Write, error) {
	if len(items) == 0 {
		return nil, nil, fmt.Errorf("%w: nothing to import", ErrInvalid)
	}
	added, w, err := s.inventory.PrependAll(items)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to import inventory: %w", err)
	}
	s.logger.Info("inventory imported", "rows", len(added))
	return added, w, nil
}

func (s *Service) ImportInventoryFile(r io.Reader, filename string) ([]domain.InventoryItem, *syncer.Write, error) {
	items, err := sheet.ReadInventory(r, filename)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s.ImportInventory(items)
}

// SearchInventory matches q case-insensitively against every field,
// extra columns included.
func (s *Service) SearchInventory(q string) []domain.InventoryItem {
	items := s.inventory.Items()
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return items
	}
	out := []domain.InventoryItem{}
	for _, it := range items {
		if containsFold(q, it.ID, it.ItemName, it.Company, it.UnitType, strconv.Itoa(it.Quantity)) ||
			containsFold(q, expmaps.Values(it.Extra)...) {
			out = append(out, it)
		}
	}
	return out
}

// UnitOptions is the default units followed by any other unit used in the
// inventory, first occurrence first.
func (s *Service) UnitOptions() []string {
	out := append([]string(nil), defaultUnits...)
	seen := make(map[string]bool)
	for _, u := range defaultUnits {
		seen[u] = true
	}
	for _, it := range s.inventory.Items() {
		if it.UnitType == "" || seen[it.UnitType] {
			continue
		}
		seen[it.UnitType] = true
		out = append(out, it.UnitType)
	}
	return out
}

func (s *Service) Customers() []domain.Customer {
	return s.customers.Items()
}

func (s *Service) AddCustomer(name string, area *string) (domain.Customer, *syncer.Write, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Customer{}, nil, fmt.Errorf("%w: customer name is required", ErrInvalid)
	}
	if area != nil {
		a := strings.TrimSpace(*area)
		area = &a
		if a == "" {
			area = nil
		}
	}
	return s.customers.Add(domain.Customer{Name: name, Area: area})
}

func (s *Service) DeleteCustomer(id string) (*syncer.Write, error) {
	return remove(s.customers, id)
}

func (s *Service) ImportCustomers(customers []domain.Customer) ([]domain.Customer, *syncer.Write, error) {
	if len(customers) == 0 {
		return nil, nil, fmt.Errorf("%w: nothing to import", ErrInvalid)
	}
	added, w, err := s.customers.PrependAll(customers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to import customers: %w", err)
	}
	s.logger.Info("customers imported", "rows", len(added))
	return added, w, nil
}

func (s *Service) ImportCustomersFile(r io.Reader, filename string) ([]domain.Customer, *syncer.Write, error) {
	customers, err := sheet.ReadCustomers(r, filename)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s.ImportCustomers(customers)
}

func (s *Service) SearchCustomers(q string) []domain.Customer {
	customers := s.customers.Items()
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return customers
	}
	out := []domain.Customer{}
	for _, c := range customers {
		area := ""
		if c.Area != nil {
			area = *c.Area
		}
		if containsFold(q, c.ID, c.Name, area) {
			out = append(out, c)
		}
	}
	return out
}
