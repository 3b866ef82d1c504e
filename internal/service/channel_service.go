package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/repository"
)

// Notifier broadcasts real-time events to connected clients. All calls
// are fire-and-forget: a hub failure must never fail the write that
// triggered it.
type Notifier interface {
	NotifyNewMessage(msg *domain.Message)
	NotifyEditedMessage(msg *domain.Message)
	NotifyDeletedMessage(taskID, messageID uuid.UUID)
	NotifyTaskSeen(taskID, messageID, userID uuid.UUID)
	NotifyDueDateRequested(msg *domain.Message)
	NotifyDueDateDecided(msg *domain.Message)
	NotifyTaskNotification(userID uuid.UUID, n *domain.Notification, unread int)
}

type ChannelService struct {
	messageRepo   repository.MessageRepository
	userRepo      repository.UserRepository
	access        *AccessResolver
	notifications *NotificationService
	notifier      Notifier
}

func NewChannelService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	access *AccessResolver,
	notifications *NotificationService,
) *ChannelService {
	return &ChannelService{
		messageRepo:   messageRepo,
		userRepo:      userRepo,
		access:        access,
		notifications: notifications,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ChannelService) SetNotifier(n Notifier) {
	s.notifier = n
}

// AuthorizeJoin is the room-membership check the realtime hub runs
// before admitting a connection into a task room.
func (s *ChannelService) AuthorizeJoin(ctx context.Context, taskID uuid.UUID, ident domain.Identity) error {
	_, err := s.access.Resolve(ctx, taskID, ident, false)
	return err
}

type SendMessageInput struct {
	Text      string     `json:"text"`
	ReplyToID *uuid.UUID `json:"reply_to_id,omitempty"`
}

type EditMessageInput struct {
	Text string `json:"text"`
}

type MessageListResponse struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

func (s *ChannelService) Send(ctx context.Context, ident domain.Identity, taskID uuid.UUID, input SendMessageInput) (*domain.Message, error) {
	access, err := s.access.Resolve(ctx, taskID, ident, false)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	// Replies may target soft-deleted messages (they render as a
	// placeholder), but never messages from another task.
	if input.ReplyToID != nil {
		target, err := s.messageRepo.GetByID(ctx, *input.ReplyToID)
		if err != nil {
			return nil, err
		}
		if target == nil || target.TaskID != taskID {
			return nil, ErrBadReply
		}
	}

	now := time.Now()
	msg := &domain.Message{
		ID:        uuid.New(),
		TaskID:    taskID,
		AuthorID:  &ident.UserID,
		Kind:      domain.MessageKindPlain,
		Text:      &text,
		ReplyToID: input.ReplyToID,
		SeenBy:    []domain.SeenEntry{{UserID: ident.UserID, SeenAt: now}},
		CreatedAt: now,
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(full)
	}
	s.dispatchMessage(ctx, access.Task, ident.UserID, full)

	return full, nil
}

func (s *ChannelService) List(ctx context.Context, ident domain.Identity, taskID uuid.UUID, before *uuid.UUID, limit int) (*MessageListResponse, error) {
	if _, err := s.access.Resolve(ctx, taskID, ident, false); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// Fetch limit+1 so we know whether more remain.
	messages, err := s.messageRepo.ListByTask(ctx, taskID, before, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return &MessageListResponse{Messages: messages, HasMore: hasMore}, nil
}

func (s *ChannelService) Edit(ctx context.Context, ident domain.Identity, messageID uuid.UUID, input EditMessageInput) (*domain.Message, error) {
	if _, err := s.loadEditable(ctx, ident, messageID); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	if err := s.messageRepo.UpdateText(ctx, messageID, text, time.Now()); err != nil {
		return nil, fmt.Errorf("updating message: %w", err)
	}

	updated, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyEditedMessage(updated)
	}
	return updated, nil
}

func (s *ChannelService) Delete(ctx context.Context, ident domain.Identity, messageID uuid.UUID) error {
	msg, err := s.loadEditable(ctx, ident, messageID)
	if err != nil {
		return err
	}

	if err := s.messageRepo.SoftDelete(ctx, messageID, time.Now()); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.NotifyDeletedMessage(msg.TaskID, messageID)
	}
	return nil
}

// MarkSeen appends a seenBy entry unless one already exists or the
// message is a system message. Returns whether an insert happened, which
// controls whether the seen broadcast fires.
func (s *ChannelService) MarkSeen(ctx context.Context, ident domain.Identity, taskID, messageID uuid.UUID) (bool, error) {
	if _, err := s.access.Resolve(ctx, taskID, ident, false); err != nil {
		return false, err
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg == nil || msg.TaskID != taskID {
		return false, ErrMessageNotFound
	}
	if msg.Kind == domain.MessageKindSystem {
		return false, nil
	}

	inserted, err := s.messageRepo.MarkSeen(ctx, messageID, ident.UserID, time.Now())
	if err != nil {
		return false, err
	}

	if inserted && s.notifier != nil {
		s.notifier.NotifyTaskSeen(taskID, messageID, ident.UserID)
	}
	return inserted, nil
}

// loadEditable enforces the shared edit/delete rules: the message must
// exist, the caller must be its author or privileged, and only live
// plain messages qualify (system messages have no owner rights at all).
func (s *ChannelService) loadEditable(ctx context.Context, ident domain.Identity, messageID uuid.UUID) (*domain.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}

	access, err := s.access.Resolve(ctx, msg.TaskID, ident, false)
	if err != nil {
		return nil, err
	}

	isAuthor := msg.AuthorID != nil && *msg.AuthorID == ident.UserID
	if !isAuthor && !access.IsPrivileged {
		return nil, ErrForbidden
	}
	if msg.Kind != domain.MessageKindPlain {
		return nil, ErrNotEditable
	}
	if msg.IsDeleted() {
		return nil, ErrMessageDeleted
	}
	return msg, nil
}

func (s *ChannelService) dispatchMessage(ctx context.Context, task *domain.Task, actorID uuid.UUID, msg *domain.Message) {
	actor, recipients, err := s.dispatchTargets(ctx, task, actorID)
	if err != nil {
		logDispatchSkip(task.ID, err)
		return
	}

	preview := ""
	if msg.Text != nil {
		preview = *msg.Text
	}
	s.notifications.Dispatch(ctx, DispatchInput{
		Task:        task,
		Actor:       actor,
		Type:        domain.NotificationTypeChannelMessage,
		Text:        fmt.Sprintf("%s commented on %q", actor.DisplayName, task.Title),
		RedirectURL: taskChannelURL(task.ID),
		Meta:        map[string]any{"message_id": msg.ID.String(), "preview": preview},
		Recipients:  recipients,
	})
}

// dispatchTargets loads the acting user and computes the fixed recipient
// policy: the task's assignees plus every elevated-role account.
// Personal tasks notify nobody; they have no audience beyond the owner.
func (s *ChannelService) dispatchTargets(ctx context.Context, task *domain.Task, actorID uuid.UUID) (*domain.User, []uuid.UUID, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	if actor == nil {
		return nil, nil, ErrUserNotFound
	}

	if task.IsPersonal {
		return actor, nil, nil
	}

	privileged, err := s.userRepo.ListPrivileged(ctx)
	if err != nil {
		return nil, nil, err
	}

	set := make(map[uuid.UUID]struct{}, len(task.AssignedUserIDs)+len(privileged))
	var recipients []uuid.UUID
	for _, id := range task.AssignedUserIDs {
		if _, ok := set[id]; !ok {
			set[id] = struct{}{}
			recipients = append(recipients, id)
		}
	}
	for _, u := range privileged {
		if _, ok := set[u.ID]; !ok {
			set[u.ID] = struct{}{}
			recipients = append(recipients, u.ID)
		}
	}
	return actor, recipients, nil
}

func taskChannelURL(taskID uuid.UUID) string {
	return fmt.Sprintf("/tasks/%s/channel", taskID)
}

// createSystemMessage writes a system entry into a task channel. Never
// exposed to end users; the due-date workflow uses it for its companion
// messages.
func createSystemMessage(ctx context.Context, repo repository.MessageRepository, taskID uuid.UUID, actorID *uuid.UUID, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	msg := &domain.Message{
		ID:        uuid.New(),
		TaskID:    taskID,
		AuthorID:  actorID,
		Kind:      domain.MessageKindSystem,
		Text:      &text,
		CreatedAt: time.Now(),
	}
	if err := repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating system message: %w", err)
	}
	return repo.GetByID(ctx, msg.ID)
}
