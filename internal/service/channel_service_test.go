package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/presence"
)

// testEnv wires the full service stack against in-memory fakes. The
// shared task has alice and bob assigned, carol as an admin who is not
// assigned, and dave as an unrelated member.
type testEnv struct {
	tasks         *memTaskRepo
	users         *memUserRepo
	messages      *memMessageRepo
	notifs        *memNotificationRepo
	tracker       *presence.Tracker
	notifier      *recordingNotifier
	channel       *ChannelService
	dueDates      *DueDateService
	notifications *NotificationService

	alice, bob, carol, dave *domain.User
	task                    *domain.Task
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		tasks:    newMemTaskRepo(),
		users:    newMemUserRepo(),
		notifs:   newMemNotificationRepo(),
		tracker:  presence.NewTracker(),
		notifier: newRecordingNotifier(),
	}
	env.messages = newMemMessageRepo(env.tasks)

	env.alice = seedUser(t, env.users, "alice", domain.RoleMember)
	env.bob = seedUser(t, env.users, "bob", domain.RoleMember)
	env.carol = seedUser(t, env.users, "carol", domain.RoleAdmin)
	env.dave = seedUser(t, env.users, "dave", domain.RoleMember)

	env.task = &domain.Task{
		ID:              uuid.New(),
		Title:           "Ship Q3 report",
		AssignedUserIDs: []uuid.UUID{env.alice.ID, env.bob.ID},
		CreatedAt:       time.Now(),
	}
	env.tasks.put(env.task)

	access := NewAccessResolver(env.tasks, domain.IsPrivileged)
	env.notifications = NewNotificationService(env.notifs, env.tracker)
	env.notifications.SetNotifier(env.notifier)
	env.channel = NewChannelService(env.messages, env.users, access, env.notifications)
	env.channel.SetNotifier(env.notifier)
	env.dueDates = NewDueDateService(env.messages, env.users, access, env.notifications, env.channel)
	env.dueDates.SetNotifier(env.notifier)

	return env
}

func seedUser(t *testing.T, repo *memUserRepo, name string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:          uuid.New(),
		Email:       fmt.Sprintf("%s@example.com", name),
		DisplayName: name,
		Role:        role,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func identOf(u *domain.User) domain.Identity {
	return domain.Identity{UserID: u.ID, Role: u.Role}
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg, err := env.channel.Send(ctx, identOf(env.alice), env.task.ID, SendMessageInput{Text: "  hello team  "})
	require.NoError(t, err)

	assert.Equal(t, domain.MessageKindPlain, msg.Kind)
	require.NotNil(t, msg.Text)
	assert.Equal(t, "hello team", *msg.Text)

	// The author counts as having seen their own message immediately.
	require.Len(t, msg.SeenBy, 1)
	assert.Equal(t, env.alice.ID, msg.SeenBy[0].UserID)

	assert.True(t, env.notifier.has("new-message"))
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.channel.Send(ctx, identOf(env.alice), env.task.ID, SendMessageInput{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = env.channel.Send(ctx, identOf(env.dave), env.task.ID, SendMessageInput{Text: "hi"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.channel.Send(ctx, identOf(env.alice), uuid.New(), SendMessageInput{Text: "hi"})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSendReply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent, err := env.channel.Send(ctx, identOf(env.alice), env.task.ID, SendMessageInput{Text: "parent"})
	require.NoError(t, err)

	reply, err := env.channel.Send(ctx, identOf(env.bob), env.task.ID, SendMessageInput{Text: "reply", ReplyToID: &parent.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyToID)
	assert.Equal(t, parent.ID, *reply.ReplyToID)

	// Replying to a soft-deleted message stays valid.
	require.NoError(t, env.channel.Delete(ctx, identOf(env.alice), parent.ID))
	_, err = env.channel.Send(ctx, identOf(env.bob), env.task.ID, SendMessageInput{Text: "late reply", ReplyToID: &parent.ID})
	assert.NoError(t, err)
}

func TestSendReplyCrossTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	other := &domain.Task{
		ID:              uuid.New(),
		Title:           "Other task",
		AssignedUserIDs: []uuid.UUID{env.alice.ID},
		CreatedAt:       time.Now(),
	}
	env.tasks.put(other)

	foreign, err := env.channel.Send(ctx, identOf(env.alice), other.ID, SendMessageInput{Text: "elsewhere"})
	require.NoError(t, err)

	_, err = env.channel.Send(ctx, identOf(env.alice), env.task.ID, SendMessageInput{Text: "bad reply", ReplyToID: &foreign.ID})
	assert.ErrorIs(t, err, ErrBadReply)

	missing := uuid.New()
	_, err = env.channel.Send(ctx, identOf(env.alice), env.task.ID, SendMessageInput{Text: "bad reply", ReplyToID: &missing})
	assert.ErrorIs(t, err, ErrBadReply)
}

func TestEditMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg, err := env.channel.Send(ctx, identOf(env.alice), env.task.ID, SendMessageInput{Text: "draft"})
	require.NoError(t, err)

	// A non-author without privilege cannot edit.
	_, err = env.channel.Edit(ctx, identOf(env.bob), msg.ID, EditMessageInput{Text: "hijack"})
	assert.ErrorIs(t, err, ErrForbidden)

	// The author can.
	updated, err := env.channel.Edit(ctx, identOf(env.alice), msg.ID, EditMessageInput{Text: "final"})
	require.NoError(t, err)
	assert.Equal(t, "final", *updated.Text)
	assert.NotNil(t, updated.EditedAt)

	// So can an admin.
	_, err = env.channel.Edit(ctx, identOf(env.carol), msg.ID, EditMessageInput{Text: "moderated"})
	assert.NoError(t, err)

	assert.Equal(t, 2, env.notifier.count("message-updated"))
}

func TestEditSystemMessageRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sys, err := createSystemMessage(ctx, env.messages, env.task.ID, &env.alice.ID, "something happened")
	require.NoError(t, err)

	_, err = env.channel.Edit(ctx, identOf(env.carol), sys.ID, EditMessageInput{Text: "rewrite history"})
	assert.ErrorIs(t, err, ErrNotEditable)

	err = env.channel.Delete(ctx, identOf(env.carol), sys.ID)
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestDeleteMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg, err := env.channel.Send(ctx, identOf(env.alice), env.task.ID, SendMessageInput{Text: "oops"})
	require.NoError(t, err)

	require.NoError(t, env.channel.Delete(ctx, identOf(env.alice), msg.ID))

	stored, err := env.messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Text)
	assert.True(t, stored.IsDeleted())

	// Deleted messages reject further edits and deletes.
	_, err = env.channel.Edit(ctx, identOf(env.alice), msg.ID, EditMessageInput{Text: "revive"})
	assert.ErrorIs(t, err, ErrMessageDeleted)
	err = env.channel.Delete(ctx, identOf(env.alice), msg.ID)
	assert.ErrorIs(t, err, ErrMessageDeleted)

	assert.Equal(t, 1, env.notifier.count("message-deleted"))
}

func TestMarkSeenIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg, err := env.channel.Send(ctx, identOf(env.alice), env.task.ID, SendMessageInput{Text: "read me"})
	require.NoError(t, err)

	inserted, err := env.channel.MarkSeen(ctx, identOf(env.bob), env.task.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, inserted)

	// The second call is a no-op and must not re-broadcast.
	inserted, err = env.channel.MarkSeen(ctx, identOf(env.bob), env.task.ID, msg.ID)
	require.NoError(t, err)
	assert.False(t, inserted)

	stored, err := env.messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, stored.SeenBy, 2)
	assert.Equal(t, 1, env.notifier.count("task-seen"))
	assert.Equal(t, []uuid.UUID{env.bob.ID}, env.notifier.seen)
}

func TestMarkSeenSystemMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sys, err := createSystemMessage(ctx, env.messages, env.task.ID, &env.alice.ID, "status changed")
	require.NoError(t, err)

	inserted, err := env.channel.MarkSeen(ctx, identOf(env.bob), env.task.ID, sys.ID)
	require.NoError(t, err)
	assert.False(t, inserted)

	stored, err := env.messages.GetByID(ctx, sys.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.SeenBy)
	assert.Equal(t, 0, env.notifier.count("task-seen"))
}

func TestMarkSeenWrongTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	other := &domain.Task{
		ID:              uuid.New(),
		Title:           "Other task",
		AssignedUserIDs: []uuid.UUID{env.bob.ID},
		CreatedAt:       time.Now(),
	}
	env.tasks.put(other)

	msg, err := env.channel.Send(ctx, identOf(env.bob), other.ID, SendMessageInput{Text: "elsewhere"})
	require.NoError(t, err)

	_, err = env.channel.MarkSeen(ctx, identOf(env.bob), env.task.ID, msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestListMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.channel.Send(ctx, identOf(env.alice), env.task.ID,
			SendMessageInput{Text: fmt.Sprintf("message %d", i)})
		require.NoError(t, err)
	}

	resp, err := env.channel.List(ctx, identOf(env.bob), env.task.ID, nil, 3)
	require.NoError(t, err)
	assert.True(t, resp.HasMore)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, "message 2", *resp.Messages[0].Text)
	assert.Equal(t, "message 4", *resp.Messages[2].Text)

	// Page back from the oldest returned message.
	before := resp.Messages[0].ID
	resp, err = env.channel.List(ctx, identOf(env.bob), env.task.ID, &before, 3)
	require.NoError(t, err)
	assert.False(t, resp.HasMore)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "message 0", *resp.Messages[0].Text)

	_, err = env.channel.List(ctx, identOf(env.dave), env.task.ID, nil, 10)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSendNotifiesAssigneesAndPrivileged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.channel.Send(ctx, identOf(env.alice), env.task.ID, SendMessageInput{Text: "fyi"})
	require.NoError(t, err)

	// bob (assignee) and carol (admin) get rows; alice is the actor and
	// dave is outside the audience.
	assert.Len(t, env.notifs.forRecipient(env.bob.ID), 1)
	assert.Len(t, env.notifs.forRecipient(env.carol.ID), 1)
	assert.Empty(t, env.notifs.forRecipient(env.alice.ID))
	assert.Empty(t, env.notifs.forRecipient(env.dave.ID))

	row := env.notifs.forRecipient(env.bob.ID)[0]
	assert.Equal(t, domain.NotificationTypeChannelMessage, row.Type)
	assert.Equal(t, env.alice.ID, row.Actor.ID)
	assert.Contains(t, row.Text, "alice")
	assert.Contains(t, row.Text, "Ship Q3 report")
}

func TestPersonalTaskChannel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	personal := &domain.Task{
		ID:         uuid.New(),
		Title:      "Groceries",
		IsPersonal: true,
		OwnerID:    &env.alice.ID,
		CreatedAt:  time.Now(),
	}
	env.tasks.put(personal)

	// Owner posts freely; no notifications for anyone.
	_, err := env.channel.Send(ctx, identOf(env.alice), personal.ID, SendMessageInput{Text: "buy milk"})
	require.NoError(t, err)
	assert.Empty(t, env.notifs.forRecipient(env.bob.ID))
	assert.Empty(t, env.notifs.forRecipient(env.carol.ID))

	// Privilege does not open personal tasks.
	_, err = env.channel.Send(ctx, identOf(env.carol), personal.ID, SendMessageInput{Text: "intrude"})
	assert.ErrorIs(t, err, ErrForbidden)
}
