package application

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sebuszqo/TimeTracker/internal/category/domain"
	categoryErrors "github.com/sebuszqo/TimeTracker/internal/category/errors"
)

const maxNameLength = 255

type CreateInput struct {
	Name      string
	ParentID  *int64
	AccountID *int64
}

type Service struct {
	repo   domain.CategoryRepository
	logger *zap.Logger
}

func NewService(repo domain.CategoryRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func validateName(name string) error {
	var errs categoryErrors.ValidationErrors
	if strings.TrimSpace(name) == "" {
		errs.Add(categoryErrors.NewValidationError("category name is required"))
	}
	if len(name) > maxNameLength {
		errs.Add(categoryErrors.NewValidationError("category name must be at most 255 characters"))
	}
	return errs.ErrOrNil()
}

// SetupAccount creates the root category of an account if it has none and returns the
// root id.
func (s *Service) SetupAccount(ctx context.Context, accountID int64) (int64, error) {
	rootID, err := s.repo.Setup(ctx, accountID)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("account tree ready", zap.Int64("account_id", accountID), zap.Int64("root_id", rootID))
	return rootID, nil
}

// resolve turns a create target into the (account, parent) pair the tree mutator needs.
func (s *Service) resolve(ctx context.Context, target domain.Target) (int64, int64, error) {
	switch target.Kind {
	case domain.TargetParent:
		parent, err := s.repo.FindByID(ctx, target.ParentID)
		if err != nil {
			return 0, 0, err
		}
		return parent.AccountID, parent.ID, nil
	case domain.TargetAccount:
		rootID, err := s.SetupAccount(ctx, target.AccountID)
		if err != nil {
			return 0, 0, err
		}
		return target.AccountID, rootID, nil
	default:
		return target.AccountID, target.ParentID, nil
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Category, error) {
	target, err := domain.NewTarget(in.ParentID, in.AccountID)
	if err != nil {
		return nil, err
	}
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	accountID, parentID, err := s.resolve(ctx, target)
	if err != nil {
		return nil, err
	}

	node, err := s.repo.Add(ctx, accountID, parentID, in.Name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("category created",
		zap.Int64("id", node.ID),
		zap.Int64("account_id", node.AccountID),
		zap.Int64("parent_id", parentID),
	)
	return fromNode(node), nil
}

// Save persists c. A new category is created; a saved one gets its modified fields
// written, relocations included, in one transaction. A clean category is left alone.
func (s *Service) Save(ctx context.Context, c *Category) error {
	if !c.IsSaved() {
		in := CreateInput{Name: c.name, ParentID: copyID(c.parentID)}
		if c.modifiedField(FieldAccount) {
			accountID := c.accountID
			in.AccountID = &accountID
		}
		created, err := s.Create(ctx, in)
		if err != nil {
			return err
		}
		*c = *created
		return nil
	}
	if !c.IsModified() {
		return nil
	}

	changes, err := s.changes(ctx, c)
	if err != nil {
		return err
	}
	if changes.Empty() {
		c.modified = nil
		return nil
	}
	node, err := s.repo.Update(ctx, c.id, changes)
	if err != nil {
		return err
	}
	s.logger.Info("category updated", zap.Int64("id", node.ID), zap.Any("fields", c.modified))
	c.load(node)
	return nil
}

func (s *Service) changes(ctx context.Context, c *Category) (domain.Changes, error) {
	var changes domain.Changes
	if c.modifiedField(FieldName) {
		if !c.IsRoot() {
			if err := validateName(c.name); err != nil {
				return changes, err
			}
		}
		name := c.name
		changes.Name = &name
	}

	accountChanged := c.modifiedField(FieldAccount) && c.accountID != c.storedAccount
	if !c.modifiedField(FieldParent) && !accountChanged {
		return changes, nil
	}

	var newParent int64
	switch {
	case c.modifiedField(FieldParent) && c.parentID != nil:
		newParent = *c.parentID
		if c.modifiedField(FieldAccount) {
			parent, err := s.repo.FindByID(ctx, newParent)
			if err != nil {
				return changes, err
			}
			if err := domain.CheckParentAccount(parent, c.accountID); err != nil {
				return changes, err
			}
		}
	default:
		if c.IsRoot() && !accountChanged {
			return changes, nil
		}
		rootID, err := s.SetupAccount(ctx, c.accountID)
		if err != nil {
			return changes, err
		}
		newParent = rootID
	}

	if c.storedParent != nil && *c.storedParent == newParent {
		return changes, nil
	}
	changes.ParentID = &newParent
	return changes, nil
}

func (s *Service) Fetch(ctx context.Context, id int64) (*Category, error) {
	node, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromNode(node), nil
}

// Parent returns nil for a root category.
func (s *Service) Parent(ctx context.Context, c *Category) (*Category, error) {
	parentID, ok := c.ParentID()
	if !ok {
		return nil, nil
	}
	return s.Fetch(ctx, parentID)
}

func (s *Service) Children(ctx context.Context, c *Category) ([]*Category, error) {
	if !c.IsSaved() {
		return nil, categoryErrors.ErrInvalidType
	}
	nodes, err := s.repo.FindChildren(ctx, c.id)
	if err != nil {
		return nil, err
	}
	return fromNodes(nodes), nil
}

func (s *Service) Descendants(ctx context.Context, c *Category) ([]*Category, error) {
	if !c.IsSaved() {
		return nil, categoryErrors.ErrInvalidType
	}
	nodes, err := s.repo.FindDescendants(ctx, c.id)
	if err != nil {
		return nil, err
	}
	return fromNodes(nodes), nil
}

// Ancestors are ordered from the account root down to the direct parent.
func (s *Service) Ancestors(ctx context.Context, c *Category) ([]*Category, error) {
	if !c.IsSaved() {
		return nil, categoryErrors.ErrInvalidType
	}
	nodes, err := s.repo.FindAncestors(ctx, c.id)
	if err != nil {
		return nil, err
	}
	return fromNodes(nodes), nil
}

func (s *Service) FindForAccount(ctx context.Context, accountID int64) ([]*Category, error) {
	nodes, err := s.repo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return fromNodes(nodes), nil
}

func (s *Service) Root(ctx context.Context, accountID int64) (*Category, error) {
	node, err := s.repo.FindRoot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return fromNode(node), nil
}

// Delete removes c. With removeChildren its whole subtree goes too, otherwise its direct
// children are promoted to c's parent.
func (s *Service) Delete(ctx context.Context, c *Category, removeChildren bool) error {
	if !c.IsSaved() {
		return categoryErrors.ErrInvalidType
	}
	if err := s.repo.Delete(ctx, c.id, removeChildren); err != nil {
		return err
	}
	s.logger.Info("category deleted", zap.Int64("id", c.id), zap.Bool("remove_children", removeChildren))
	c.id = 0
	c.modified = nil
	return nil
}
