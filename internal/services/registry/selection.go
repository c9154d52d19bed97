package registry

import (
	"context"
	"fmt"

	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// Toggle flips the selection of one record and reports whether it is now selected
func (f *Files) Toggle(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if indexOf(f.records, id) < 0 {
		return false, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}

	_, was := f.selected[id]
	if was {
		delete(f.selected, id)
	} else {
		f.selected[id] = struct{}{}
	}

	f.publish(ctx, interfaces.EventSelectionChanged)
	return !was, nil
}

// ToggleAll applies select-all to the records visible under opts: when every
// visible record is already selected the selection is cleared, otherwise the
// selection becomes exactly the visible records.
func (f *Files) ToggleAll(ctx context.Context, opts ListOptions) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	visible := f.listLocked(opts)

	allSelected := len(visible) > 0
	for _, record := range visible {
		if _, ok := f.selected[record.ID]; !ok {
			allSelected = false
			break
		}
	}

	f.selected = make(map[string]struct{}, len(visible))
	if !allSelected {
		for _, record := range visible {
			f.selected[record.ID] = struct{}{}
		}
	}

	f.publish(ctx, interfaces.EventSelectionChanged)
	return f.selectedIDsLocked()
}

// ClearSelection empties the selection set
func (f *Files) ClearSelection(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.selected = make(map[string]struct{})
	f.publish(ctx, interfaces.EventSelectionChanged)
}

// Select replaces the selection with the given ids. Unknown ids are rejected.
func (f *Files) Select(ctx context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if indexOf(f.records, id) < 0 {
			return fmt.Errorf("file %s: %w", id, ErrNotFound)
		}
		next[id] = struct{}{}
	}
	f.selected = next

	f.publish(ctx, interfaces.EventSelectionChanged)
	return nil
}

// IsSelected reports whether a record is in the selection set
func (f *Files) IsSelected(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.selected[id]
	return ok
}

// SelectedIDs returns the selected ids in registry order
func (f *Files) SelectedIDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.selectedIDsLocked()
}

// Selected returns copies of the selected records in registry order
func (f *Files) Selected() []models.FileRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.FileRecord, 0, len(f.selected))
	for _, record := range f.records {
		if _, ok := f.selected[record.ID]; ok {
			out = append(out, record)
		}
	}
	return out
}

func (f *Files) selectedIDsLocked() []string {
	ids := make([]string, 0, len(f.selected))
	for _, record := range f.records {
		if _, ok := f.selected[record.ID]; ok {
			ids = append(ids, record.ID)
		}
	}
	return ids
}
