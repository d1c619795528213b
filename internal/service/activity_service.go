package service

import (
	"context"

	"github.com/andy/casetrail/internal/domain"
	"github.com/andy/casetrail/internal/repository"
)

// TimelineAssembler builds the activity panel of an object
type TimelineAssembler interface {
	AssembleForObjectDetails(ctx context.Context, obj *domain.Object) (*domain.Timeline, error)
}

// ActivityService serves object timelines
type ActivityService interface {
	// GetTimeline loads the object and assembles its activity panel
	GetTimeline(ctx context.Context, ref domain.ObjectRef) (*domain.Object, *domain.Timeline, error)
}

type activityService struct {
	objects   repository.ObjectRepository
	assembler TimelineAssembler
}

// NewActivityService creates a new activity service
func NewActivityService(objects repository.ObjectRepository, assembler TimelineAssembler) ActivityService {
	return &activityService{
		objects:   objects,
		assembler: assembler,
	}
}

func (s *activityService) GetTimeline(ctx context.Context, ref domain.ObjectRef) (*domain.Object, *domain.Timeline, error) {
	if err := ref.Validate(); err != nil {
		return nil, nil, err
	}

	obj, err := s.objects.GetByID(ctx, ref.Class, ref.ID)
	if err != nil {
		return nil, nil, err
	}

	timeline, err := s.assembler.AssembleForObjectDetails(ctx, obj)
	if err != nil {
		return nil, nil, err
	}
	return obj, timeline, nil
}
