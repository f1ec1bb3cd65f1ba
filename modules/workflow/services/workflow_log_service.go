package services

import (
	"context"
	"errors"

	"github.com/iota-uz/timekeeper/modules/workflow/domain/workflowlog"
)

type WorkflowLogService struct {
	repo workflowlog.Repository
}

func NewWorkflowLogService(repo workflowlog.Repository) *WorkflowLogService {
	return &WorkflowLogService{repo: repo}
}

func (s *WorkflowLogService) List(ctx context.Context, params *workflowlog.FindParams) ([]*workflowlog.Entry, int64, error) {
	if params == nil {
		params = &workflowlog.FindParams{}
	}

	entries, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return entries, count, nil
}

func (s *WorkflowLogService) Create(ctx context.Context, entry *workflowlog.Entry) error {
	if entry == nil {
		return errors.New("workflow log payload is required")
	}
	return s.repo.Create(ctx, entry)
}
