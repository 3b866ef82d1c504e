package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/repository"
)

// Access is the result of one authorization check against a task's
// current membership snapshot.
type Access struct {
	Task         *domain.Task
	IsAssigned   bool
	IsPrivileged bool
}

// AccessResolver decides channel membership for a task: assignee,
// privileged, personal-task owner, or none. It is read-only and fetches
// the task fresh on every call — assignment can change between a room
// join and a later message post, so snapshots are never cached.
type AccessResolver struct {
	taskRepo     repository.TaskRepository
	isPrivileged func(domain.Role) bool
}

func NewAccessResolver(taskRepo repository.TaskRepository, isPrivileged func(domain.Role) bool) *AccessResolver {
	return &AccessResolver{taskRepo: taskRepo, isPrivileged: isPrivileged}
}

func (r *AccessResolver) Resolve(ctx context.Context, taskID uuid.UUID, ident domain.Identity, requireAssignee bool) (*Access, error) {
	task, err := r.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	access := &Access{
		Task:         task,
		IsAssigned:   task.IsAssigned(ident.UserID),
		IsPrivileged: r.isPrivileged(ident.Role),
	}

	// Personal tasks are private notebooks, not team-visible: only the
	// owner passes, privilege does not.
	if task.IsPersonal {
		if task.OwnerID == nil || *task.OwnerID != ident.UserID {
			return nil, ErrForbidden
		}
		return access, nil
	}

	if requireAssignee {
		if !access.IsAssigned {
			return nil, ErrNotAssignee
		}
		return access, nil
	}

	if !access.IsAssigned && !access.IsPrivileged {
		return nil, ErrForbidden
	}
	return access, nil
}
