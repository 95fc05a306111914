package service

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/pharmaflow/internal/domain"
	"github.com/vbonduro/pharmaflow/internal/sheet"
	"github.com/vbonduro/pharmaflow/internal/syncer"
)

// HistoryCap bounds the number of unpinned requirement history entries kept.
const HistoryCap = 50

// RequirementDraft is a requirement sheet being edited. An empty OrderID
// starts a new entry.
type RequirementDraft struct {
	OrderID string                   `json:"orderId"`
	Org     string                   `json:"org"`
	Items   []domain.RequirementItem `json:"items"`
}

// requirementPrefix is the per-day id prefix, e.g. "5OCT26".
func requirementPrefix(t time.Time) string {
	return fmt.Sprintf("%d%s%02d", t.Day(), strings.ToUpper(t.Format("Jan")), t.Year()%100)
}

// DateLabel is the sheet date, e.g. "05 OCT 2026".
func DateLabel(t time.Time) string {
	return strings.ToUpper(t.Format("02 Jan 2006"))
}

func nextRequirementID(entries []domain.RequirementHistoryEntry, now time.Time) string {
	prefix := requirementPrefix(now)
	highest := 0
	for _, e := range entries {
		rest, ok := strings.CutPrefix(e.OrderID, prefix+"-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s-%d", prefix, highest+1)
}

// NextRequirementID returns the next free id for now's day. Suffixes follow
// the highest one in use, so a deleted entry's id is not handed out again
// while a later one exists.
func (s *Service) NextRequirementID(now time.Time) string {
	return nextRequirementID(s.history.Items(), now.In(s.loc))
}

// capHistory keeps at most HistoryCap unpinned entries, evicting the oldest
// first. Pinned entries are never evicted and do not count towards the cap.
func capHistory(entries []domain.RequirementHistoryEntry) []domain.RequirementHistoryEntry {
	unpinned := 0
	for _, e := range entries {
		if !e.Pinned {
			unpinned++
		}
	}
	excess := unpinned - HistoryCap
	if excess <= 0 {
		return entries
	}
	drop := make(map[int]bool, excess)
	for i := len(entries) - 1; i >= 0 && len(drop) < excess; i-- {
		if !entries[i].Pinned {
			drop[i] = true
		}
	}
	out := make([]domain.RequirementHistoryEntry, 0, len(entries)-len(drop))
	for i, e := range entries {
		if !drop[i] {
			out = append(out, e)
		}
	}
	return out
}

// SaveRequirement upserts the draft. An existing entry keeps its position
// and pin; a new one is prepended and the cap applied.
func (s *Service) SaveRequirement(d RequirementDraft) (domain.RequirementHistoryEntry, *syncer.Write, error) {
	org := strings.TrimSpace(d.Org)
	if org == "" {
		return domain.RequirementHistoryEntry{}, nil, fmt.Errorf("%w: organization is required", ErrInvalid)
	}
	if len(d.Items) == 0 {
		return domain.RequirementHistoryEntry{}, nil, fmt.Errorf("%w: a requirement needs at least one item", ErrInvalid)
	}

	now := s.Now()
	var saved domain.RequirementHistoryEntry
	w, err := s.history.Mutate("save", func(entries []domain.RequirementHistoryEntry) ([]domain.RequirementHistoryEntry, error) {
		id := d.OrderID
		if id == "" {
			id = nextRequirementID(entries, now)
		}
		saved = domain.RequirementHistoryEntry{
			OrderID: id,
			Date:    DateLabel(now),
			Org:     org,
			Items:   append([]domain.RequirementItem(nil), d.Items...),
		}
		for i := range entries {
			if entries[i].OrderID == id {
				saved.Pinned = entries[i].Pinned
				entries[i] = saved
				return entries, nil
			}
		}
		return capHistory(append([]domain.RequirementHistoryEntry{saved}, entries...)), nil
	})
	if err != nil {
		return domain.RequirementHistoryEntry{}, nil, fmt.Errorf("failed to save requirement: %w", err)
	}
	return saved, w, nil
}

func (s *Service) TogglePin(id string) (domain.RequirementHistoryEntry, *syncer.Write, error) {
	return modify(s.history, id, func(e domain.RequirementHistoryEntry) (domain.RequirementHistoryEntry, error) {
		e.Pinned = !e.Pinned
		return e, nil
	})
}

func (s *Service) DeleteRequirement(id string) (*syncer.Write, error) {
	return remove(s.history, id)
}

// RequirementHistory lists pinned entries first, otherwise in stored order.
func (s *Service) RequirementHistory() []domain.RequirementHistoryEntry {
	entries := s.history.Items()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Pinned && !entries[j].Pinned
	})
	return entries
}

func (s *Service) Requirement(id string) (domain.RequirementHistoryEntry, error) {
	e, ok := s.history.Get(id)
	if !ok {
		return domain.RequirementHistoryEntry{}, ErrNotFound
	}
	return e, nil
}

// requirementFor loads an entry and keeps only items from the given
// companies. No companies means all items.
func (s *Service) requirementFor(id string, companies []string) (sheet.Requirement, error) {
	e, ok := s.history.Get(id)
	if !ok {
		return sheet.Requirement{}, ErrNotFound
	}
	items := e.Items
	if len(companies) > 0 {
		want := make(map[string]bool, len(companies))
		for _, c := range companies {
			want[c] = true
		}
		items = nil
		for _, it := range e.Items {
			if want[it.Company] {
				items = append(items, it)
			}
		}
	}
	if len(items) == 0 {
		return sheet.Requirement{}, fmt.Errorf("%w: no items to export", ErrInvalid)
	}
	return sheet.Requirement{OrderID: e.OrderID, Org: e.Org, DateLabel: e.Date, Items: items}, nil
}

// ExportRequirement writes the entry as a styled workbook and returns the
// download file name.
func (s *Service) ExportRequirement(id string, companies []string, w io.Writer) (string, error) {
	req, err := s.requirementFor(id, companies)
	if err != nil {
		return "", err
	}
	if err := sheet.WriteRequirement(w, req); err != nil {
		return "", fmt.Errorf("failed to export requirement %s: %w", id, err)
	}
	return req.Filename(), nil
}

func (s *Service) RequirementShareText(id string, companies []string) (string, error) {
	req, err := s.requirementFor(id, companies)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nID: %s\n%s\n_________________________\n\n", strings.ToUpper(req.Org), req.OrderID, req.DateLabel)
	for i, it := range req.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "* %s - *%s*", it.ItemName, it.Quantity)
	}
	return b.String(), nil
}

// Companies lists the distinct non-empty companies in an entry.
func (s *Service) Companies(id string) ([]string, error) {
	e, ok := s.history.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, it := range e.Items {
		if it.Company != "" && !seen[it.Company] {
			seen[it.Company] = true
			out = append(out, it.Company)
		}
	}
	return out, nil
}
