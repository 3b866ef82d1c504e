package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/presence"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/repository"
)

const dispatchConcurrency = 8

// NotificationService persists per-recipient notifications and pushes
// best-effort live updates. It runs strictly after the authoritative
// write that triggered it; nothing here can fail that write.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	presence  *presence.Tracker
	notifier  Notifier
}

func NewNotificationService(notifRepo repository.NotificationRepository, tracker *presence.Tracker) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		presence:  tracker,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *NotificationService) SetNotifier(n Notifier) {
	s.notifier = n
}

type DispatchInput struct {
	Task        *domain.Task
	Actor       *domain.User
	Type        string
	Text        string
	RedirectURL string
	Meta        map[string]any
	Recipients  []uuid.UUID
}

// Dispatch fans a channel event out to its recipient set. The actor is
// never notified, and neither is anyone currently watching the task's
// room: they already received the room broadcast. Failures are isolated
// per recipient and logged; one bad push must not block the rest.
func (s *NotificationService) Dispatch(ctx context.Context, in DispatchInput) {
	actor := domain.ActorSnapshot{
		ID:          in.Actor.ID,
		DisplayName: in.Actor.DisplayName,
		Email:       in.Actor.Email,
		Role:        in.Actor.Role,
	}

	var g errgroup.Group
	g.SetLimit(dispatchConcurrency)

	for _, recipientID := range in.Recipients {
		if recipientID == in.Actor.ID {
			continue
		}
		if s.presence.IsWatching(in.Task.ID, recipientID) {
			continue
		}

		g.Go(func() error {
			n := &domain.Notification{
				ID:          uuid.New(),
				TaskID:      in.Task.ID,
				RecipientID: recipientID,
				Actor:       actor,
				Type:        in.Type,
				Text:        in.Text,
				RedirectURL: in.RedirectURL,
				Meta:        in.Meta,
				CreatedAt:   time.Now(),
			}
			if err := s.notifRepo.Create(ctx, n); err != nil {
				log.Warn().Err(err).
					Str("task_id", in.Task.ID.String()).
					Str("recipient_id", recipientID.String()).
					Msg("notification persist failed")
				return nil
			}

			if s.notifier != nil {
				unread, err := s.notifRepo.CountUnread(ctx, recipientID, in.Task.ID)
				if err != nil {
					log.Warn().Err(err).
						Str("recipient_id", recipientID.String()).
						Msg("unread recount failed, skipping push")
					return nil
				}
				s.notifier.NotifyTaskNotification(recipientID, n, unread)
			}
			return nil
		})
	}
	g.Wait()
}

func (s *NotificationService) List(ctx context.Context, recipientID uuid.UUID, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	notifications, err := s.notifRepo.ListByRecipient(ctx, recipientID, limit)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return notifications, nil
}

// MarkRead batch-marks all unread notifications in one
// (recipient, task, type) scope.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, taskID uuid.UUID, notifType string) error {
	return s.notifRepo.MarkRead(ctx, recipientID, taskID, notifType, time.Now())
}

func (s *NotificationService) Delete(ctx context.Context, recipientID, id uuid.UUID) error {
	return s.notifRepo.Delete(ctx, id, recipientID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID, taskID uuid.UUID) (int, error) {
	return s.notifRepo.CountUnread(ctx, recipientID, taskID)
}

func logDispatchSkip(taskID uuid.UUID, err error) {
	log.Warn().Err(err).
		Str("task_id", taskID.String()).
		Msg("notification dispatch skipped")
}
