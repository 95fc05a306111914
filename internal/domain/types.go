package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Collection paths in the remote document store.
const (
	CollectionOrders             = "orders"
	CollectionInventory          = "inventory"
	CollectionCustomers          = "customers"
	CollectionEmployees          = "employees"
	CollectionRequirementHistory = "requirementHistory"
)

// Collections lists every synchronized collection in a stable order.
var Collections = []string{
	CollectionOrders,
	CollectionInventory,
	CollectionCustomers,
	CollectionEmployees,
	CollectionRequirementHistory,
}

type OrderItem struct {
	ItemName      string `json:"itemName"`
	Quantity      string `json:"quantity"`
	UnitType      string `json:"unitType"`
	IsHighlighted bool   `json:"isHighlighted"`
}

type Order struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customerName"`
	Items        []OrderItem `json:"items"`
	CreatedAt    time.Time   `json:"createdAt"`
	Deadline     *time.Time  `json:"deadline"`
	Status       OrderStatus `json:"status"`
}

// Taken reports whether the order has been picked (delivered orders are always taken).
func (o Order) Taken() bool { return o.Status.Taken() }

// Delivered reports whether the order reached its final state.
func (o Order) Delivered() bool { return o.Status == StatusDelivered }

// orderWire is the stored shape. The taken/delivered flags are kept on the
// wire so older clients and older documents stay readable.
type orderWire struct {
	ID           json.RawMessage `json:"id"`
	CustomerName string          `json:"customerName"`
	Items        []OrderItem     `json:"items"`
	CreatedAt    time.Time       `json:"createdAt"`
	Deadline     *time.Time      `json:"deadline"`
	Status       string          `json:"status,omitempty"`
	Taken        bool            `json:"taken"`
	Delivered    bool            `json:"delivered"`
}

func (o Order) MarshalJSON() ([]byte, error) {
	id, err := json.Marshal(o.ID)
	if err != nil {
		return nil, err
	}
	items := o.Items
	if items == nil {
		items = []OrderItem{}
	}
	return json.Marshal(orderWire{
		ID:           id,
		CustomerName: o.CustomerName,
		Items:        items,
		CreatedAt:    o.CreatedAt,
		Deadline:     o.Deadline,
		Status:       o.Status.String(),
		Taken:        o.Taken(),
		Delivered:    o.Delivered(),
	})
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var w orderWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.ID = decodeID(w.ID)
	o.CustomerName = w.CustomerName
	o.Items = w.Items
	o.CreatedAt = w.CreatedAt
	o.Deadline = w.Deadline

	status, ok := ParseOrderStatus(w.Status)
	if !ok {
		status = StatusPending
	}
	// Flags win over a stale status string written by older clients.
	switch {
	case w.Delivered:
		status = StatusDelivered
	case w.Taken && status == StatusPending:
		status = StatusPicked
	}
	o.Status = status
	return nil
}

// decodeID accepts both string ids and the numeric ids older clients wrote.
func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// InventoryItem mirrors Employee: columns beyond the fixed ones live in Extra
// and are flattened into the stored object.
type InventoryItem struct {
	ID       string
	ItemName string
	Company  string
	UnitType string
	Quantity int
	Extra    map[string]string
}

func (it InventoryItem) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(it.Extra)+5)
	for k, v := range it.Extra {
		m[k] = v
	}
	m["id"] = it.ID
	m["itemName"] = it.ItemName
	m["company"] = it.Company
	m["unitType"] = it.UnitType
	m["quantity"] = it.Quantity
	return json.Marshal(m)
}

func (it *InventoryItem) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*it = InventoryItem{}
	for k, v := range raw {
		switch k {
		case "id":
			it.ID = decodeID(v)
		case "itemName":
			it.ItemName = rawString(v)
		case "company":
			it.Company = rawString(v)
		case "unitType":
			it.UnitType = rawString(v)
		case "quantity":
			it.Quantity = decodeQuantity(v)
		default:
			if it.Extra == nil {
				it.Extra = make(map[string]string)
			}
			it.Extra[k] = rawString(v)
		}
	}
	return nil
}

// decodeQuantity reads numbers, numeric strings and fractional values
// (truncated). Anything else counts as zero.
func decodeQuantity(v json.RawMessage) int {
	s := strings.TrimSpace(rawString(v))
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

type Customer struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Area *string `json:"area"`
}

// Employee carries the fixed fields plus any extra columns an operator added.
// Extra is flattened into the stored JSON object.
type Employee struct {
	ID       string
	Name     string
	Password string
	Extra    map[string]string
}

func (e Employee) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(e.Extra)+3)
	for k, v := range e.Extra {
		m[k] = v
	}
	m["id"] = e.ID
	m["name"] = e.Name
	m["password"] = e.Password
	return json.Marshal(m)
}

func (e *Employee) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Employee{}
	for k, v := range raw {
		switch k {
		case "id":
			e.ID = decodeID(v)
		case "name":
			e.Name = rawString(v)
		case "password":
			e.Password = rawString(v)
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]string)
			}
			e.Extra[k] = rawString(v)
		}
	}
	return nil
}

func rawString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	if string(v) == "null" {
		return ""
	}
	return string(v)
}

type RequirementItem struct {
	ItemName string `json:"itemName"`
	Company  string `json:"company"`
	Quantity string `json:"quantity"`
}

type RequirementHistoryEntry struct {
	OrderID string            `json:"orderId"`
	Date    string            `json:"date"`
	Org     string            `json:"org"`
	Items   []RequirementItem `json:"items"`
	Pinned  bool              `json:"pinned"`
}
