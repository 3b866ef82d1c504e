package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/repository"
)

const dueDateLayout = "2006-01-02"

// Mailer sends the heads-up email for a freshly opened due-date request.
// Best-effort only; errors are logged at the call site.
type Mailer interface {
	SendDueDateRequest(task *domain.Task, requester *domain.User, proposed time.Time, reason string, recipients []domain.User) error
}

// DueDateService runs the extension-request state machine embedded in
// due_date_request messages: pending → approved | rejected, terminal.
type DueDateService struct {
	messageRepo   repository.MessageRepository
	userRepo      repository.UserRepository
	access        *AccessResolver
	notifications *NotificationService
	channel       *ChannelService
	notifier      Notifier
	mailer        Mailer
}

func NewDueDateService(
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	access *AccessResolver,
	notifications *NotificationService,
	channel *ChannelService,
) *DueDateService {
	return &DueDateService{
		messageRepo:   messageRepo,
		userRepo:      userRepo,
		access:        access,
		notifications: notifications,
		channel:       channel,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *DueDateService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetMailer sets the outbound mailer (optional dependency).
func (s *DueDateService) SetMailer(m Mailer) {
	s.mailer = m
}

type OpenRequestInput struct {
	ProposedDueDate string `json:"proposed_due_date"`
	Reason          string `json:"reason"`
}

// OpenRequest creates a pending due-date request plus its companion
// system message, always as a pair, so the channel narrative stays
// coherent. Only assignees may open requests.
func (s *DueDateService) OpenRequest(ctx context.Context, ident domain.Identity, taskID uuid.UUID, input OpenRequestInput) (*domain.Message, error) {
	access, err := s.access.Resolve(ctx, taskID, ident, true)
	if err != nil {
		return nil, err
	}

	proposed, err := time.Parse(dueDateLayout, input.ProposedDueDate)
	if err != nil {
		return nil, ErrBadDate
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}

	actor, err := s.userRepo.GetByID(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, ErrUserNotFound
	}

	now := time.Now()
	msg := &domain.Message{
		ID:       uuid.New(),
		TaskID:   taskID,
		AuthorID: &ident.UserID,
		Kind:     domain.MessageKindDueDateRequest,
		DueDate: &domain.DueDateRequest{
			ProposedDueDate: proposed,
			Reason:          reason,
			Status:          domain.DueDateStatusPending,
		},
		SeenBy:    []domain.SeenEntry{{UserID: ident.UserID, SeenAt: now}},
		CreatedAt: now,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating due date request: %w", err)
	}

	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	sys, err := createSystemMessage(ctx, s.messageRepo, taskID, &ident.UserID,
		fmt.Sprintf("%s submitted a due date extension request", actor.DisplayName))
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyDueDateRequested(full)
		s.notifier.NotifyNewMessage(sys)
	}

	s.dispatch(ctx, access.Task, actor, domain.NotificationTypeDueDateRequest,
		fmt.Sprintf("%s requested a due date extension on %q", actor.DisplayName, access.Task.Title),
		full.ID)

	s.sendMail(access.Task, actor, proposed, reason)

	return full, nil
}

// Decide resolves a pending request. Privileged identities only. The
// status flip is a conditional update, so a second decision loses the
// race and reports InvalidState instead of re-firing side effects.
func (s *DueDateService) Decide(ctx context.Context, ident domain.Identity, requestMessageID uuid.UUID, approve bool) (*domain.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, requestMessageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if msg.Kind != domain.MessageKindDueDateRequest || msg.DueDate == nil {
		return nil, ErrNotARequest
	}

	access, err := s.access.Resolve(ctx, msg.TaskID, ident, false)
	if err != nil {
		return nil, err
	}
	if !access.IsPrivileged {
		return nil, ErrForbidden
	}

	actor, err := s.userRepo.GetByID(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, ErrUserNotFound
	}

	status := domain.DueDateStatusRejected
	verb := "rejected"
	var newDue *time.Time
	if approve {
		status = domain.DueDateStatusApproved
		verb = "approved"
		newDue = &msg.DueDate.ProposedDueDate
	}

	// Approval mutates the task's due date inside the same transaction
	// as the status flip; rejection touches nothing on the task.
	decided, err := s.messageRepo.DecideDueDate(ctx, requestMessageID, status, ident.UserID, time.Now(), newDue)
	if err != nil {
		return nil, fmt.Errorf("deciding due date request: %w", err)
	}
	if !decided {
		return nil, ErrRequestDecided
	}

	updated, err := s.messageRepo.GetByID(ctx, requestMessageID)
	if err != nil {
		return nil, err
	}

	sys, err := createSystemMessage(ctx, s.messageRepo, msg.TaskID, &ident.UserID,
		fmt.Sprintf("%s %s the due date extension request", actor.DisplayName, verb))
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyDueDateDecided(updated)
		s.notifier.NotifyNewMessage(sys)
	}

	s.dispatch(ctx, access.Task, actor, domain.NotificationTypeDueDateDecision,
		fmt.Sprintf("%s %s the due date extension request on %q", actor.DisplayName, verb, access.Task.Title),
		updated.ID)

	return updated, nil
}

func (s *DueDateService) dispatch(ctx context.Context, task *domain.Task, actor *domain.User, notifType, text string, messageID uuid.UUID) {
	_, recipients, err := s.channel.dispatchTargets(ctx, task, actor.ID)
	if err != nil {
		logDispatchSkip(task.ID, err)
		return
	}
	s.notifications.Dispatch(ctx, DispatchInput{
		Task:        task,
		Actor:       actor,
		Type:        notifType,
		Text:        text,
		RedirectURL: taskChannelURL(task.ID),
		Meta:        map[string]any{"message_id": messageID.String()},
		Recipients:  recipients,
	})
}

func (s *DueDateService) sendMail(task *domain.Task, requester *domain.User, proposed time.Time, reason string) {
	if s.mailer == nil {
		return
	}
	go func() {
		recipients, err := s.userRepo.ListPrivileged(context.Background())
		if err != nil {
			log.Warn().Err(err).Msg("due date mail: listing recipients failed")
			return
		}
		if err := s.mailer.SendDueDateRequest(task, requester, proposed, reason, recipients); err != nil {
			log.Warn().Err(err).
				Str("task_id", task.ID.String()).
				Msg("due date mail failed")
		}
	}()
}
