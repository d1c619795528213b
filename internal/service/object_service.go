package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andy/casetrail/internal/domain"
	"github.com/andy/casetrail/internal/logging"
	"github.com/andy/casetrail/internal/repository"
)

var (
	ErrNotCaseLog  = errors.New("attribute is not a case log")
	ErrEmptyChange = errors.New("nothing to change")
)

// ObjectService performs tracked writes: every mutation is recorded as a
// change with one op per modified field.
type ObjectService interface {
	// Create validates and inserts a new object
	Create(ctx context.Context, class, name string, attrs map[string]string, origin domain.ChangeOrigin) (*domain.Object, error)

	// Get returns a live object
	Get(ctx context.Context, ref domain.ObjectRef) (*domain.Object, error)

	// List returns the live objects of a class, or of all classes when class is empty
	List(ctx context.Context, class string) ([]*domain.Object, error)

	// SetAttributes applies values (the "name" key renames the object).
	// An empty value clears the attribute. Returns the recorded ops, none
	// when the object already holds the values.
	SetAttributes(ctx context.Context, ref domain.ObjectRef, values map[string]string, origin domain.ChangeOrigin) ([]*domain.ChangeOp, error)

	// AppendCaseLog posts a message to a case log attribute
	AppendCaseLog(ctx context.Context, ref domain.ObjectRef, attCode, message string, origin domain.ChangeOrigin) (*domain.CaseLogRecord, error)

	// Delete soft-deletes an object
	Delete(ctx context.Context, ref domain.ObjectRef, origin domain.ChangeOrigin) error

	// SetAuthor changes who later changes are recorded for
	SetAuthor(author Author)
}

type objectService struct {
	objects repository.ObjectRepository
	classes *domain.ClassRegistry
	logger  logging.Logger
	signer
}

// NewObjectService creates a new object service
func NewObjectService(
	objects repository.ObjectRepository,
	classes *domain.ClassRegistry,
	author Author,
	logger logging.Logger,
) ObjectService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &objectService{
		objects: objects,
		classes: classes,
		logger:  logger,
		signer:  signer{author: author},
	}
}

func (s *objectService) newChange(origin domain.ChangeOrigin) *domain.Change {
	author := s.currentAuthor()
	return domain.NewChange(author.Login, author.Name, origin)
}

func (s *objectService) Create(ctx context.Context, class, name string, attrs map[string]string, origin domain.ChangeOrigin) (*domain.Object, error) {
	def, err := s.classes.Get(class)
	if err != nil {
		return nil, err
	}

	obj := domain.NewObject(class, strings.TrimSpace(name))
	for code, value := range attrs {
		obj.Attributes[code] = value
	}
	if err := obj.Validate(def); err != nil {
		return nil, err
	}
	if obj.StateHash, err = stateHash(obj); err != nil {
		return nil, err
	}

	if err := s.objects.Create(ctx, obj, s.newChange(origin)); err != nil {
		return nil, err
	}

	s.logger.Infow("object created", "object", obj.String(), "name", obj.Name, "origin", origin)
	return obj, nil
}

func (s *objectService) Get(ctx context.Context, ref domain.ObjectRef) (*domain.Object, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.classes.Get(ref.Class); err != nil {
		return nil, err
	}
	return s.objects.GetByID(ctx, ref.Class, ref.ID)
}

func (s *objectService) List(ctx context.Context, class string) ([]*domain.Object, error) {
	if class != "" {
		if _, err := s.classes.Get(class); err != nil {
			return nil, err
		}
	}
	return s.objects.List(ctx, class)
}

func (s *objectService) SetAttributes(ctx context.Context, ref domain.ObjectRef, values map[string]string, origin domain.ChangeOrigin) ([]*domain.ChangeOp, error) {
	if len(values) == 0 {
		return nil, ErrEmptyChange
	}

	def, err := s.classes.Get(ref.Class)
	if err != nil {
		return nil, err
	}

	before, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	after := before.Clone()
	applyValues(after, values)
	if err := after.Validate(def); err != nil {
		return nil, err
	}

	ops, err := trackChanges(def, before, after)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		s.logger.Debugw("object unchanged, no change recorded", "object", ref)
		return nil, nil
	}

	if err := s.objects.Update(ctx, after, ops, s.newChange(origin)); err != nil {
		return nil, err
	}

	s.logger.Infow("object updated", "object", after.String(), "ops", len(ops), "origin", origin)
	return ops, nil
}

func (s *objectService) AppendCaseLog(ctx context.Context, ref domain.ObjectRef, attCode, message string, origin domain.ChangeOrigin) (*domain.CaseLogRecord, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	def, err := s.classes.Get(ref.Class)
	if err != nil {
		return nil, err
	}
	att, ok := def.Attribute(attCode)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", domain.ErrUnknownAttribute, ref.Class, attCode)
	}
	if !att.IsCaseLog() {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotCaseLog, ref.Class, attCode)
	}

	author := s.currentAuthor()
	rec := domain.NewCaseLogRecord(ref, attCode, message, author.Login, author.Name)
	if err := s.objects.AppendCaseLog(ctx, rec, s.newChange(origin)); err != nil {
		return nil, err
	}

	s.logger.Infow("case log entry added", "object", ref, "attribute", attCode, "origin", origin)
	return rec, nil
}

func (s *objectService) Delete(ctx context.Context, ref domain.ObjectRef, origin domain.ChangeOrigin) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if _, err := s.classes.Get(ref.Class); err != nil {
		return err
	}

	if err := s.objects.Delete(ctx, ref, s.newChange(origin)); err != nil {
		return err
	}

	s.logger.Infow("object deleted", "object", ref, "origin", origin)
	return nil
}

// applyValues writes values into obj; "name" renames and "" clears
func applyValues(obj *domain.Object, values map[string]string) {
	for code, value := range values {
		value = strings.TrimSpace(value)
		if code == "name" {
			obj.Name = value
			continue
		}
		if value == "" {
			delete(obj.Attributes, code)
			continue
		}
		obj.Attributes[code] = value
	}
}
