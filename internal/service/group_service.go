package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ctlmanager/ctlmanager/internal/logger"
	"github.com/ctlmanager/ctlmanager/internal/model"
	"github.com/ctlmanager/ctlmanager/internal/repository"
)

// Group management errors
var (
	ErrGroupCodeRequired = errors.New("group code is required")
	ErrGroupNameRequired = errors.New("group name is required")
	ErrGroupCodeTaken    = errors.New("group code already exists")
	ErrGroupNotFound     = errors.New("group not found")
)

// GroupStore is the persistence surface for groups
type GroupStore interface {
	List(ctx context.Context, limit int) ([]model.Group, error)
	GetByCode(ctx context.Context, code string) (*model.Group, error)
	Add(ctx context.Context, actor *string, group *model.Group) error
	Update(ctx context.Context, actor *string, group *model.Group) error
}

// GroupService handles service group management
type GroupService struct {
	groups GroupStore
	log    *logger.Logger
}

// NewGroupService creates a new GroupService
func NewGroupService(groups GroupStore, log *logger.Logger) *GroupService {
	return &GroupService{groups: groups, log: log.WithComponent("group_service")}
}

// AddGroup validates and creates a group
func (s *GroupService) AddGroup(ctx context.Context, actor *string, code, name, serviceName string) error {
	group, err := validateGroup(code, name, serviceName)
	if err != nil {
		return err
	}

	if err := s.groups.Add(ctx, actor, group); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrGroupCodeTaken
		}
		return err
	}

	s.log.Info().Str("group_code", group.GroupCode).Msg("group created")
	return nil
}

// UpdateGroup validates and updates an existing group
func (s *GroupService) UpdateGroup(ctx context.Context, actor *string, code, name, serviceName string) error {
	group, err := validateGroup(code, name, serviceName)
	if err != nil {
		return err
	}

	if err := s.groups.Update(ctx, actor, group); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGroupNotFound
		}
		return err
	}

	s.log.Info().Str("group_code", group.GroupCode).Msg("group updated")
	return nil
}

// ListGroups returns groups ordered by code
func (s *GroupService) ListGroups(ctx context.Context, limit int) ([]model.Group, error) {
	if limit <= 0 {
		limit = 2000
	}
	return s.groups.List(ctx, limit)
}

func validateGroup(code, name, serviceName string) (*model.Group, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	serviceName = strings.TrimSpace(serviceName)

	if code == "" {
		return nil, ErrGroupCodeRequired
	}
	if name == "" {
		return nil, ErrGroupNameRequired
	}

	return &model.Group{
		GroupCode:   code,
		GroupName:   name,
		ServiceName: serviceName,
	}, nil
}
