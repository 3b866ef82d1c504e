package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
)

// In-memory repository fakes. They emulate the conditional-update
// semantics the postgres layer provides, which is exactly what the
// concurrency-sensitive tests need to observe.

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (r *memTaskRepo) put(t *domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
}

func (r *memTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *memTaskRepo) SetDueDate(_ context.Context, id uuid.UUID, due time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		t.DueDate = &due
		t.ReminderSentAt = nil
	}
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) ListPrivileged(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if domain.IsPrivileged(u.Role) {
			out = append(out, *u)
		}
	}
	return out, nil
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*domain.Message
	order    []uuid.UUID
	tasks    *memTaskRepo
}

func newMemMessageRepo(tasks *memTaskRepo) *memMessageRepo {
	return &memMessageRepo{
		messages: make(map[uuid.UUID]*domain.Message),
		tasks:    tasks,
	}
}

func (r *memMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	cp.SeenBy = append([]domain.SeenEntry(nil), msg.SeenBy...)
	if msg.DueDate != nil {
		due := *msg.DueDate
		cp.DueDate = &due
	}
	r.messages[cp.ID] = &cp
	r.order = append(r.order, cp.ID)
	return nil
}

func (r *memMessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	return copyMessage(msg), nil
}

func (r *memMessageRepo) ListByTask(_ context.Context, taskID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, id := range r.order {
		if before != nil && id == *before {
			break
		}
		msg := r.messages[id]
		if msg.TaskID == taskID {
			out = append(out, *copyMessage(msg))
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *memMessageRepo) UpdateText(_ context.Context, id uuid.UUID, text string, editedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.messages[id]; ok {
		msg.Text = &text
		msg.EditedAt = &editedAt
	}
	return nil
}

func (r *memMessageRepo) SoftDelete(_ context.Context, id uuid.UUID, deletedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.messages[id]; ok {
		msg.Text = nil
		msg.DeletedAt = &deletedAt
	}
	return nil
}

func (r *memMessageRepo) MarkSeen(_ context.Context, messageID, userID uuid.UUID, seenAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return false, nil
	}
	for _, entry := range msg.SeenBy {
		if entry.UserID == userID {
			return false, nil
		}
	}
	msg.SeenBy = append(msg.SeenBy, domain.SeenEntry{UserID: userID, SeenAt: seenAt})
	return true, nil
}

func (r *memMessageRepo) DecideDueDate(_ context.Context, messageID uuid.UUID, status domain.DueDateStatus, deciderID uuid.UUID, decidedAt time.Time, newTaskDue *time.Time) (bool, error) {
	r.mu.Lock()
	msg, ok := r.messages[messageID]
	if !ok || msg.Kind != domain.MessageKindDueDateRequest || msg.DueDate == nil ||
		msg.DueDate.Status != domain.DueDateStatusPending {
		r.mu.Unlock()
		return false, nil
	}
	msg.DueDate.Status = status
	msg.DueDate.DecidedBy = &deciderID
	msg.DueDate.DecidedAt = &decidedAt
	taskID := msg.TaskID
	r.mu.Unlock()

	if newTaskDue != nil {
		return true, r.tasks.SetDueDate(context.Background(), taskID, *newTaskDue)
	}
	return true, nil
}

func copyMessage(msg *domain.Message) *domain.Message {
	cp := *msg
	cp.SeenBy = append([]domain.SeenEntry(nil), msg.SeenBy...)
	if msg.DueDate != nil {
		due := *msg.DueDate
		cp.DueDate = &due
	}
	return &cp
}

type memNotificationRepo struct {
	mu    sync.Mutex
	items []*domain.Notification
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{}
}

func (r *memNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.items = append(r.items, &cp)
	return nil
}

func (r *memNotificationRepo) ListByRecipient(_ context.Context, recipientID uuid.UUID, limit int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		if r.items[i].RecipientID == recipientID {
			out = append(out, *r.items[i])
		}
	}
	return out, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, recipientID, taskID uuid.UUID, notifType string, readAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.RecipientID == recipientID && n.TaskID == taskID && n.Type == notifType && n.ReadAt == nil {
			at := readAt
			n.ReadAt = &at
		}
	}
	return nil
}

func (r *memNotificationRepo) Delete(_ context.Context, id, recipientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.items {
		if n.ID == id && n.RecipientID == recipientID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memNotificationRepo) CountUnread(_ context.Context, recipientID, taskID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.items {
		if n.RecipientID == recipientID && n.TaskID == taskID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) forRecipient(recipientID uuid.UUID) []*domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for _, n := range r.items {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

// recordingNotifier captures every broadcast and push the services emit.
type recordingNotifier struct {
	mu       sync.Mutex
	events   []string
	seen     []uuid.UUID
	pushes   map[uuid.UUID]int
	lastPush *domain.Notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{pushes: make(map[uuid.UUID]int)}
}

func (n *recordingNotifier) record(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) NotifyNewMessage(*domain.Message)       { n.record("new-message") }
func (n *recordingNotifier) NotifyEditedMessage(*domain.Message)    { n.record("message-updated") }
func (n *recordingNotifier) NotifyDeletedMessage(_, _ uuid.UUID)    { n.record("message-deleted") }
func (n *recordingNotifier) NotifyDueDateRequested(*domain.Message) { n.record("due-date-requested") }

func (n *recordingNotifier) NotifyDueDateDecided(msg *domain.Message) {
	if msg.DueDate != nil && msg.DueDate.Status == domain.DueDateStatusApproved {
		n.record("due-date-approved")
		return
	}
	n.record("due-date-rejected")
}

func (n *recordingNotifier) NotifyTaskSeen(_, _, userID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "task-seen")
	n.seen = append(n.seen, userID)
}

func (n *recordingNotifier) NotifyTaskNotification(userID uuid.UUID, notification *domain.Notification, unread int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "task-notification")
	n.pushes[userID] = unread
	n.lastPush = notification
}

func (n *recordingNotifier) eventList() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func (n *recordingNotifier) has(event string) bool {
	for _, e := range n.eventList() {
		if e == event {
			return true
		}
	}
	return false
}

func (n *recordingNotifier) count(event string) int {
	c := 0
	for _, e := range n.eventList() {
		if e == event {
			c++
		}
	}
	return c
}
