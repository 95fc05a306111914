package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/pharmaflow/internal/cache"
	"github.com/vbonduro/pharmaflow/internal/docstore"
	"github.com/vbonduro/pharmaflow/internal/docstore/memory"
	"github.com/vbonduro/pharmaflow/internal/domain"
	"github.com/vbonduro/pharmaflow/internal/sheet"
	"github.com/vbonduro/pharmaflow/internal/syncer"
)

var testNow = time.Date(2026, time.October, 5, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	sync := syncer.New(memory.New(), cache.NewMemory(), syncer.Options{StrictWrites: true})
	require.NoError(t, sync.Open(context.Background()))
	t.Cleanup(func() { _ = sync.Close(context.Background()) })

	svc := New(sync, time.UTC, slog.Default())
	svc.now = func() time.Time { return testNow }
	return svc
}

func wait(t *testing.T, w *syncer.Write) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Wait(ctx))
}

func placeOrder(t *testing.T, svc *Service, customer string, items ...string) domain.Order {
	t.Helper()
	d := OrderDraft{CustomerName: customer}
	for _, name := range items {
		d.Items = append(d.Items, domain.OrderItem{ItemName: name, Quantity: "2", UnitType: "Boxes"})
	}
	o, w, err := svc.PlaceOrder(d)
	require.NoError(t, err)
	wait(t, w)
	return o
}

func TestPlaceOrder(t *testing.T) {
	svc := newTestService(t)

	o := placeOrder(t, svc, " Apollo ", "Paracetamol")

	assert.Regexp(t, `^o-\d+$`, o.ID)
	assert.Equal(t, "Apollo", o.CustomerName)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, testNow, o.CreatedAt)

	got, err := svc.Order(o.ID)
	require.NoError(t, err)
	assert.Equal(t, o, got)
}

func TestPlaceOrderValidation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name  string
		draft OrderDraft
	}{
		{"no customer", OrderDraft{Items: []domain.OrderItem{{ItemName: "x", Quantity: "1"}}}},
		{"no items", OrderDraft{CustomerName: "Apollo"}},
		{"bad quantity", OrderDraft{CustomerName: "Apollo", Items: []domain.OrderItem{{ItemName: "x", Quantity: "ten"}}}},
		{"blank item", OrderDraft{CustomerName: "Apollo", Items: []domain.OrderItem{{ItemName: " ", Quantity: "1"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, w, err := svc.PlaceOrder(tt.draft)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Nil(t, w)
		})
	}
	assert.Empty(t, svc.Orders())
}

func TestDeliveredImpliesTaken(t *testing.T) {
	svc := newTestService(t)
	o := placeOrder(t, svc, "Apollo", "Zinc")

	updated, w, err := svc.SetDelivered(o.ID, true)
	require.NoError(t, err)
	wait(t, w)

	assert.True(t, updated.Delivered())
	assert.True(t, updated.Taken())

	raw, err := json.Marshal(updated)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"taken":true`)
	assert.Contains(t, string(raw), `"delivered":true`)

	_, _, err = svc.SetTaken(o.ID, false)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := svc.Order(o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, stored.Status)

	reopened, _, err := svc.SetDelivered(o.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPicked, reopened.Status)
}

func TestSetOrderStatus(t *testing.T) {
	svc := newTestService(t)
	o := placeOrder(t, svc, "Apollo", "Zinc")

	got, _, err := svc.SetOrderStatus(o.ID, domain.StatusPicked)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPicked, got.Status)

	_, _, err = svc.SetOrderStatus("o-missing", domain.StatusPicked)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleItemHighlight(t *testing.T) {
	svc := newTestService(t)
	o := placeOrder(t, svc, "Apollo", "Zinc", "ORS")

	got, w, err := svc.ToggleItemHighlight(o.ID, 1)
	require.NoError(t, err)
	wait(t, w)

	assert.False(t, got.Items[0].IsHighlighted)
	assert.True(t, got.Items[1].IsHighlighted)
	assert.False(t, o.Items[1].IsHighlighted, "earlier copies are not mutated")

	got, _, err = svc.ToggleItemHighlight(o.ID, 1)
	require.NoError(t, err)
	assert.False(t, got.Items[1].IsHighlighted)

	_, _, err = svc.ToggleItemHighlight(o.ID, 5)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEditOrderKeepsIdentityAndStatus(t *testing.T) {
	svc := newTestService(t)
	o := placeOrder(t, svc, "Apollo", "Zinc")
	deadline := testNow.Add(3 * time.Hour)
	_, _, err := svc.SetDeadline(o.ID, &deadline)
	require.NoError(t, err)
	_, _, err = svc.SetTaken(o.ID, true)
	require.NoError(t, err)

	edited, w, err := svc.EditOrder(o.ID, OrderDraft{
		CustomerName: "Medplus",
		Items:        []domain.OrderItem{{ItemName: "Gauze", Quantity: "10+2", UnitType: "Rolls"}},
	})
	require.NoError(t, err)
	wait(t, w)

	assert.Equal(t, o.ID, edited.ID)
	assert.Equal(t, o.CreatedAt, edited.CreatedAt)
	assert.Equal(t, domain.StatusPicked, edited.Status)
	require.NotNil(t, edited.Deadline)
	assert.True(t, deadline.Equal(*edited.Deadline))
	assert.Equal(t, "Medplus", edited.CustomerName)
	assert.Len(t, edited.Items, 1)
}

func TestDeleteOrder(t *testing.T) {
	svc := newTestService(t)
	a := placeOrder(t, svc, "A", "x")
	b := placeOrder(t, svc, "B", "x")
	c := placeOrder(t, svc, "C", "x")

	w, err := svc.DeleteOrder(b.ID)
	require.NoError(t, err)
	wait(t, w)

	assert.Equal(t, []domain.Order{c, a}, svc.Orders())

	_, err = svc.DeleteOrder(b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeadlineUrgency(t *testing.T) {
	at := func(d time.Duration) *time.Time { v := testNow.Add(d); return &v }

	assert.Equal(t, UrgencyNone, DeadlineUrgency(nil, testNow))
	assert.Equal(t, UrgencyOverdue, DeadlineUrgency(at(0), testNow))
	assert.Equal(t, UrgencyOverdue, DeadlineUrgency(at(-time.Minute), testNow))
	assert.Equal(t, UrgencySoon, DeadlineUrgency(at(6*time.Hour), testNow))
	assert.Equal(t, UrgencyOK, DeadlineUrgency(at(6*time.Hour+time.Second), testNow))
}

func TestDashboard(t *testing.T) {
	svc := newTestService(t)

	svc.now = func() time.Time { return testNow.Add(-24 * time.Hour) }
	old := placeOrder(t, svc, "Yesterday", "x")

	svc.now = func() time.Time { return testNow.Add(-time.Hour) }
	early := placeOrder(t, svc, "Early", "x")
	svc.now = func() time.Time { return testNow }
	late := placeOrder(t, svc, "Late", "x")

	deadline := testNow.Add(2 * time.Hour)
	_, _, err := svc.SetDeadline(late.ID, &deadline)
	require.NoError(t, err)
	_, w, err := svc.SetDelivered(early.ID, true)
	require.NoError(t, err)
	wait(t, w)

	dash := svc.Dashboard(testNow, false)
	require.Len(t, dash.Pending, 1)
	assert.Equal(t, late.ID, dash.Pending[0].Order.ID)
	assert.Equal(t, UrgencySoon, dash.Pending[0].Urgency)
	require.Len(t, dash.Delivered, 1)
	assert.Equal(t, early.ID, dash.Delivered[0].Order.ID)

	full := svc.Dashboard(testNow, true)
	require.Len(t, full.Pending, 2)
	assert.Equal(t, late.ID, full.Pending[0].Order.ID)
	assert.Equal(t, old.ID, full.Pending[1].Order.ID)

	counts := svc.OpenOrdersByUrgency(testNow)
	assert.Equal(t, 1, counts[UrgencySoon])
	assert.Equal(t, 1, counts[UrgencyNone])
	assert.Empty(t, svc.OverdueOrders(testNow))
	assert.Len(t, svc.OverdueOrders(testNow.Add(3*time.Hour)), 1)
}

func TestOrderShareText(t *testing.T) {
	svc := newTestService(t)
	o := placeOrder(t, svc, "Apollo", "Zinc", "ORS")

	text, err := svc.OrderShareText(o.ID)
	require.NoError(t, err)

	assert.Equal(t, "*Apollo*\n05 Oct 2026 | 10:30 am\n__________________________\n\n"+
		"• Zinc - *2 Boxes*\n• ORS - *2 Boxes*", text)
}

func TestInventoryOperations(t *testing.T) {
	svc := newTestService(t)

	item, _, err := svc.AddInventoryItem(domain.InventoryItem{ItemName: "Zinc", Company: "Cipla", UnitType: "Strips", Quantity: 3})
	require.NoError(t, err)
	_, _, err = svc.AddInventoryItem(domain.InventoryItem{ItemName: "ORS", Company: "GSK", UnitType: "Boxes"})
	require.NoError(t, err)
	_, _, err = svc.AddInventoryItem(domain.InventoryItem{ItemName: "Bad", Quantity: -1})
	assert.ErrorIs(t, err, ErrInvalid)

	qty := 7
	updated, w, err := svc.UpdateInventoryItem(item.ID, InventoryPatch{Quantity: &qty})
	require.NoError(t, err)
	wait(t, w)
	assert.Equal(t, 7, updated.Quantity)
	assert.Equal(t, "Cipla", updated.Company)

	assert.Len(t, svc.SearchInventory("cip"), 1)
	assert.Len(t, svc.SearchInventory("STRIPS"), 1)
	assert.Len(t, svc.SearchInventory(""), 2)
	assert.Empty(t, svc.SearchInventory("nothing"))

	assert.Equal(t, []string{"Packets", "Boxes", "Cases", "Strips"}, svc.UnitOptions())

	_, _, err = svc.UpdateInventoryItem("item-missing", InventoryPatch{Quantity: &qty})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportInventoryFile(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.AddInventoryItem(domain.InventoryItem{ItemName: "Existing"})
	require.NoError(t, err)

	csv := "item,Qty\nFirst,1\nSecond,2\n"
	added, w, err := svc.ImportInventoryFile(bytes.NewBufferString(csv), "stock.csv")
	require.NoError(t, err)
	wait(t, w)

	require.Len(t, added, 2)
	inv := svc.Inventory()
	require.Len(t, inv, 3)
	assert.Equal(t, "First", inv[0].ItemName)
	assert.Equal(t, "Second", inv[1].ItemName)
	assert.Equal(t, "Existing", inv[2].ItemName)
	assert.NotEqual(t, inv[0].ID, inv[1].ID)

	_, _, err = svc.ImportInventoryFile(bytes.NewBufferString("item\n"), "empty.csv")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestInventoryExtraColumns(t *testing.T) {
	svc := newTestService(t)

	csv := "Item Name,Stock,Batch,Rack\nInsulin,5,B-17,Fridge 2\n"
	added, w, err := svc.ImportInventoryFile(bytes.NewBufferString(csv), "stock.csv")
	require.NoError(t, err)
	wait(t, w)
	require.Len(t, added, 1)
	id := added[0].ID

	stored, ok := svc.inventory.Get(id)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"Batch": "B-17", "Rack": "Fridge 2"}, stored.Extra)

	assert.Len(t, svc.SearchInventory("fridge"), 1)
	assert.Len(t, svc.SearchInventory("b-17"), 1)

	batch := "B-18"
	updated, w, err := svc.UpdateInventoryItem(id, InventoryPatch{Extra: map[string]*string{"Batch": &batch, "Rack": nil}})
	require.NoError(t, err)
	wait(t, w)
	assert.Equal(t, map[string]string{"Batch": "B-18"}, updated.Extra)
	assert.Empty(t, svc.SearchInventory("fridge"))

	_, _, err = svc.UpdateInventoryItem(id, InventoryPatch{Extra: map[string]*string{"quantity": &batch}})
	assert.ErrorIs(t, err, ErrInvalid)
	_, _, err = svc.AddInventoryItem(domain.InventoryItem{ItemName: "x", Extra: map[string]string{"id": "1"}})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestInventoryPatchCopiesExtra(t *testing.T) {
	svc := newTestService(t)
	item, w, err := svc.AddInventoryItem(domain.InventoryItem{ItemName: "Gauze", Extra: map[string]string{"Rack": "A"}})
	require.NoError(t, err)
	wait(t, w)
	before, _ := svc.inventory.Get(item.ID)

	rack := "B"
	_, w, err = svc.UpdateInventoryItem(item.ID, InventoryPatch{Extra: map[string]*string{"Rack": &rack}})
	require.NoError(t, err)
	wait(t, w)

	assert.Equal(t, "A", before.Extra["Rack"])
	after, _ := svc.inventory.Get(item.ID)
	assert.Equal(t, "B", after.Extra["Rack"])
}

func TestLegacyInventoryDocumentIsKept(t *testing.T) {
	store := memory.New()
	legacy := `[{"id":"item-1","itemName":"Paracetamol","company":"GSK","unitType":"Strip","quantity":"120"},` +
		`{"id":"item-2","itemName":"Cetirizine","company":"Cipla","unitType":"Strip","quantity":40}]`
	_, err := store.Put(context.Background(), domain.CollectionInventory, []byte(legacy), docstore.AnyRevision)
	require.NoError(t, err)

	sync := syncer.New(store, cache.NewMemory(), syncer.Options{StrictWrites: true})
	require.NoError(t, sync.Open(context.Background()))
	t.Cleanup(func() { _ = sync.Close(context.Background()) })
	svc := New(sync, time.UTC, slog.Default())

	require.Len(t, svc.Inventory(), 2)
	_, w, err := svc.AddInventoryItem(domain.InventoryItem{ItemName: "Aspirin", Quantity: 10})
	require.NoError(t, err)
	wait(t, w)

	var remote []domain.InventoryItem
	require.NoError(t, json.Unmarshal(store.Get(domain.CollectionInventory).Value, &remote))
	require.Len(t, remote, 3)
	assert.Equal(t, "Aspirin", remote[0].ItemName)
	assert.Equal(t, 120, remote[1].Quantity)
	assert.Equal(t, "item-2", remote[2].ID)
}

func TestCustomers(t *testing.T) {
	svc := newTestService(t)
	north := "North"

	c, _, err := svc.AddCustomer("Apollo", &north)
	require.NoError(t, err)
	_, _, err = svc.AddCustomer("Medplus", nil)
	require.NoError(t, err)
	_, _, err = svc.AddCustomer("  ", nil)
	assert.ErrorIs(t, err, ErrInvalid)

	assert.Len(t, svc.SearchCustomers("north"), 1)
	assert.Len(t, svc.SearchCustomers("med"), 1)

	w, err := svc.DeleteCustomer(c.ID)
	require.NoError(t, err)
	wait(t, w)
	assert.Len(t, svc.Customers(), 1)
}

func TestEmployeesHidePasswords(t *testing.T) {
	hashCost = bcrypt.MinCost
	t.Cleanup(func() { hashCost = bcrypt.DefaultCost })
	svc := newTestService(t)

	emp, w, err := svc.AddEmployee("Ravi", "s3cret", map[string]string{"phone": "555-0101"})
	require.NoError(t, err)
	wait(t, w)
	assert.Empty(t, emp.Password)

	stored, ok := svc.employees.Get(emp.ID)
	require.True(t, ok)
	assert.NotEqual(t, "s3cret", stored.Password)
	assert.True(t, looksHashed(stored.Password))

	assert.Empty(t, svc.SearchEmployees("s3cret"))
	assert.Empty(t, svc.SearchEmployees("$2a$"))
	found := svc.SearchEmployees("555")
	require.Len(t, found, 1)
	assert.Empty(t, found[0].Password)

	ok, err = svc.CheckEmployeePassword(emp.ID, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.CheckEmployeePassword(emp.ID, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = svc.AddEmployee("Bad", "pw", map[string]string{"password": "x"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEmployeeExistingHashIsKept(t *testing.T) {
	svc := newTestService(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	emp, _, err := svc.AddEmployee("Imported", string(hash), nil)
	require.NoError(t, err)

	stored, _ := svc.employees.Get(emp.ID)
	assert.Equal(t, string(hash), stored.Password)
}

func draft(org string, items ...domain.RequirementItem) RequirementDraft {
	if len(items) == 0 {
		items = []domain.RequirementItem{{ItemName: "Zinc", Company: "Cipla", Quantity: "5"}}
	}
	return RequirementDraft{Org: org, Items: items}
}

func TestRequirementIDs(t *testing.T) {
	svc := newTestService(t)

	assert.Equal(t, "5OCT26-1", svc.NextRequirementID(testNow))

	first, _, err := svc.SaveRequirement(draft("Hospital"))
	require.NoError(t, err)
	second, _, err := svc.SaveRequirement(draft("Clinic"))
	require.NoError(t, err)
	third, w, err := svc.SaveRequirement(draft("Ward"))
	require.NoError(t, err)
	wait(t, w)

	assert.Equal(t, "5OCT26-1", first.OrderID)
	assert.Equal(t, "5OCT26-2", second.OrderID)
	assert.Equal(t, "5OCT26-3", third.OrderID)
	assert.Equal(t, "05 OCT 2026", first.Date)

	_, err = svc.DeleteRequirement(second.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "5OCT26-4", svc.NextRequirementID(testNow))

	assert.Equal(t, "6OCT26-1", svc.NextRequirementID(testNow.Add(24*time.Hour)))
}

func TestSaveRequirementUpsertKeepsPin(t *testing.T) {
	svc := newTestService(t)
	entry, _, err := svc.SaveRequirement(draft("Hospital"))
	require.NoError(t, err)
	_, _, err = svc.SaveRequirement(draft("Clinic"))
	require.NoError(t, err)
	_, _, err = svc.TogglePin(entry.OrderID)
	require.NoError(t, err)

	d := draft("Hospital East", domain.RequirementItem{ItemName: "ORS", Company: "GSK", Quantity: "9"})
	d.OrderID = entry.OrderID
	saved, w, err := svc.SaveRequirement(d)
	require.NoError(t, err)
	wait(t, w)

	assert.True(t, saved.Pinned)
	stored := svc.history.Items()
	require.Len(t, stored, 2)
	assert.Equal(t, entry.OrderID, stored[1].OrderID, "upsert keeps position")
	assert.Equal(t, "Hospital East", stored[1].Org)
	assert.True(t, stored[1].Pinned)

	_, _, err = svc.SaveRequirement(RequirementDraft{Org: "x"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestHistoryCapEvictsOldestFirst(t *testing.T) {
	svc := newTestService(t)

	var w *syncer.Write
	var ids []string
	for i := 0; i < HistoryCap+5; i++ {
		e, wr, err := svc.SaveRequirement(draft(fmt.Sprintf("Org %d", i)))
		require.NoError(t, err)
		ids = append(ids, e.OrderID)
		w = wr
	}
	wait(t, w)

	entries := svc.RequirementHistory()
	require.Len(t, entries, HistoryCap)
	assert.Equal(t, ids[len(ids)-1], entries[0].OrderID)
	assert.Equal(t, ids[5], entries[HistoryCap-1].OrderID)
}

func TestCapHistoryKeepsPinned(t *testing.T) {
	var entries []domain.RequirementHistoryEntry
	for i := 0; i < HistoryCap+3; i++ {
		entries = append(entries, domain.RequirementHistoryEntry{OrderID: fmt.Sprintf("id-%d", i)})
	}
	// The two oldest are pinned, leaving one unpinned entry over the cap.
	entries[len(entries)-1].Pinned = true
	entries[len(entries)-2].Pinned = true

	got := capHistory(entries)

	require.Len(t, got, HistoryCap+2)
	assert.Equal(t, "id-52", got[len(got)-1].OrderID)
	assert.Equal(t, "id-51", got[len(got)-2].OrderID)
	assert.Equal(t, "id-49", got[len(got)-3].OrderID)
	assert.Equal(t, "id-0", got[0].OrderID)
}

func TestSaveRequirementWithFullPinnedHistory(t *testing.T) {
	svc := newTestService(t)

	for i := 0; i < HistoryCap; i++ {
		e, _, err := svc.SaveRequirement(draft(fmt.Sprintf("Org %d", i)))
		require.NoError(t, err)
		_, _, err = svc.TogglePin(e.OrderID)
		require.NoError(t, err)
	}

	saved, w, err := svc.SaveRequirement(draft("New Org"))
	require.NoError(t, err)
	wait(t, w)

	got, err := svc.Requirement(saved.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "New Org", got.Org)
	assert.Len(t, svc.RequirementHistory(), HistoryCap+1)

	// Unpinned entries still rotate once there are more than the cap.
	for i := 0; i < HistoryCap; i++ {
		_, w, err = svc.SaveRequirement(draft(fmt.Sprintf("Later %d", i)))
		require.NoError(t, err)
	}
	wait(t, w)
	assert.Len(t, svc.RequirementHistory(), 2*HistoryCap)
	_, err = svc.Requirement(saved.OrderID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCapHistoryAllPinnedCanExceed(t *testing.T) {
	var entries []domain.RequirementHistoryEntry
	for i := 0; i < HistoryCap+2; i++ {
		entries = append(entries, domain.RequirementHistoryEntry{OrderID: fmt.Sprintf("id-%d", i), Pinned: true})
	}
	assert.Len(t, capHistory(entries), HistoryCap+2)
}

func TestRequirementHistoryPinnedFirst(t *testing.T) {
	svc := newTestService(t)
	a, _, _ := svc.SaveRequirement(draft("A"))
	b, _, _ := svc.SaveRequirement(draft("B"))
	c, _, _ := svc.SaveRequirement(draft("C"))
	_, _, err := svc.TogglePin(a.OrderID)
	require.NoError(t, err)

	var got []string
	for _, e := range svc.RequirementHistory() {
		got = append(got, e.OrderID)
	}
	assert.Equal(t, []string{a.OrderID, c.OrderID, b.OrderID}, got)
}

func TestExportAndShareRequirement(t *testing.T) {
	svc := newTestService(t)
	entry, w, err := svc.SaveRequirement(draft("City Hospital",
		domain.RequirementItem{ItemName: "Zinc", Company: "Cipla", Quantity: "5"},
		domain.RequirementItem{ItemName: "ORS", Company: "GSK", Quantity: "10+1"},
	))
	require.NoError(t, err)
	wait(t, w)

	var buf bytes.Buffer
	name, err := svc.ExportRequirement(entry.OrderID, []string{"GSK"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "5OCT26-1_City Hospital.xlsx", name)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := f.GetRows(sheet.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"ORS", "10+1"}, rows[3])

	text, err := svc.RequirementShareText(entry.OrderID, nil)
	require.NoError(t, err)
	assert.Equal(t, "CITY HOSPITAL\nID: 5OCT26-1\n05 OCT 2026\n_________________________\n\n"+
		"* Zinc - *5*\n* ORS - *10+1*", text)

	_, err = svc.ExportRequirement(entry.OrderID, []string{"Nobody"}, &buf)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = svc.ExportRequirement("missing", nil, &buf)
	assert.ErrorIs(t, err, ErrNotFound)

	companies, err := svc.Companies(entry.OrderID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cipla", "GSK"}, companies)
}
