package reminder

import (
	"context"
	"sort"
	"sync"

	"github.com/hrygo/studyhub/store"
)

// memoryStore is an in-memory Store with the same compare-and-set semantics
// as the database drivers.
type memoryStore struct {
	mu        sync.Mutex
	nextID    int32
	reminders map[int32]*store.StudyReminder
}

func newMemoryStore() *memoryStore {
	return &memoryStore{reminders: map[int32]*store.StudyReminder{}}
}

func (m *memoryStore) CreateStudyReminder(_ context.Context, create *store.StudyReminder) (*store.StudyReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r := *create
	r.ID = m.nextID
	m.reminders[r.ID] = &r
	out := r
	return &out, nil
}

func (m *memoryStore) ListStudyReminders(_ context.Context, find *store.FindStudyReminder) ([]*store.StudyReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []*store.StudyReminder{}
	for _, r := range m.reminders {
		if find.ID != nil && r.ID != *find.ID {
			continue
		}
		if find.CreatorID != nil && r.CreatorID != *find.CreatorID {
			continue
		}
		if find.ItemID != nil && r.ItemID != *find.ItemID {
			continue
		}
		if len(find.StatusList) > 0 && !containsStatus(find.StatusList, r.Status) {
			continue
		}
		if find.DueBefore != nil {
			if r.Status != store.ReminderPending || r.ReminderTs > *find.DueBefore {
				continue
			}
			if r.SnoozeUntilTs != nil && *r.SnoozeUntilTs > *find.DueBefore {
				continue
			}
		}
		out := *r
		list = append(list, &out)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ReminderTs != list[j].ReminderTs {
			return list[i].ReminderTs < list[j].ReminderTs
		}
		return list[i].ID < list[j].ID
	})
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (m *memoryStore) GetStudyReminder(ctx context.Context, find *store.FindStudyReminder) (*store.StudyReminder, error) {
	list, err := m.ListStudyReminders(ctx, find)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (m *memoryStore) UpdateStudyReminder(_ context.Context, update *store.UpdateStudyReminder) (*store.StudyReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[update.ID]
	if !ok || r.Status != update.ExpectedStatus {
		return nil, store.ErrConflict
	}
	if v := update.Status; v != nil {
		r.Status = *v
	}
	if v := update.ReminderTs; v != nil {
		r.ReminderTs = *v
	}
	if v := update.SnoozeUntilTs; v != nil {
		r.SnoozeUntilTs = v
	}
	if v := update.AttemptCount; v != nil {
		r.AttemptCount = *v
	}
	if v := update.SentTs; v != nil {
		r.SentTs = v
	}
	if v := update.CompletedTs; v != nil {
		r.CompletedTs = v
	}
	if v := update.UpdatedTs; v != nil {
		r.UpdatedTs = *v
	}
	out := *r
	return &out, nil
}

func containsStatus(list []store.ReminderStatus, status store.ReminderStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}
