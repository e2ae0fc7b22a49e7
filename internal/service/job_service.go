package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ctlmanager/ctlmanager/internal/logger"
	"github.com/ctlmanager/ctlmanager/internal/model"
	"github.com/ctlmanager/ctlmanager/internal/repository"
)

// Job management errors
var (
	ErrJobTypeRequired  = errors.New("type is required")
	ErrJobNameRequired  = errors.New("job name is required")
	ErrGroupRequired    = errors.New("group is required")
	ErrInvalidSeverity  = errors.New("invalid severity: use 3 (high), 4 (medium) or 5 (low)")
	ErrJobNotFound      = errors.New("job not found")
	ErrJobGroupNotFound = errors.New("selected group does not exist")
)

// JobStore is the persistence surface for jobs
type JobStore interface {
	List(ctx context.Context, search string, limit int) ([]model.JobInfo, error)
	Add(ctx context.Context, actor *string, job *model.Job) (int64, error)
	Update(ctx context.Context, actor *string, job *model.Job) error
}

// GroupLookup resolves group codes during job validation
type GroupLookup interface {
	GetByCode(ctx context.Context, code string) (*model.Group, error)
}

// JobService handles job management
type JobService struct {
	jobs   JobStore
	groups GroupLookup
	log    *logger.Logger
}

// NewJobService creates a new JobService
func NewJobService(jobs JobStore, groups GroupLookup, log *logger.Logger) *JobService {
	return &JobService{jobs: jobs, groups: groups, log: log.WithComponent("job_service")}
}

// AddJob validates and creates a job, returning its id
func (s *JobService) AddJob(ctx context.Context, actor *string, jobType, jobName, groupCode string, severity int) (int64, error) {
	job, err := s.validate(ctx, jobType, jobName, groupCode, severity)
	if err != nil {
		return 0, err
	}

	id, err := s.jobs.Add(ctx, actor, job)
	if err != nil {
		return 0, err
	}

	s.log.Info().Int64("job_id", id).Str("job_name", job.JobName).Msg("job created")
	return id, nil
}

// UpdateJob validates and updates an existing job
func (s *JobService) UpdateJob(ctx context.Context, actor *string, id int64, jobType, jobName, groupCode string, severity int) error {
	job, err := s.validate(ctx, jobType, jobName, groupCode, severity)
	if err != nil {
		return err
	}
	job.ID = id

	if err := s.jobs.Update(ctx, actor, job); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrJobNotFound
		}
		return err
	}

	s.log.Info().Int64("job_id", id).Msg("job updated")
	return nil
}

// ListJobs returns jobs joined with their group, optionally filtered
func (s *JobService) ListJobs(ctx context.Context, search string, limit int) ([]model.JobInfo, error) {
	if limit <= 0 {
		limit = 2000
	}
	return s.jobs.List(ctx, strings.TrimSpace(search), limit)
}

func (s *JobService) validate(ctx context.Context, jobType, jobName, groupCode string, severity int) (*model.Job, error) {
	jobType = strings.TrimSpace(jobType)
	jobName = strings.TrimSpace(jobName)
	groupCode = strings.TrimSpace(groupCode)

	if jobType == "" {
		return nil, ErrJobTypeRequired
	}
	if jobName == "" {
		return nil, ErrJobNameRequired
	}
	if groupCode == "" {
		return nil, ErrGroupRequired
	}
	// Severity follows the incident priority mapping
	if severity < 3 || severity > 5 {
		return nil, ErrInvalidSeverity
	}

	if _, err := s.groups.GetByCode(ctx, groupCode); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobGroupNotFound
		}
		return nil, fmt.Errorf("failed to look up group: %w", err)
	}

	return &model.Job{
		Type:      jobType,
		JobName:   jobName,
		GroupCode: groupCode,
		Severity:  severity,
	}, nil
}
