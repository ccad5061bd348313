package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sebuszqo/TimeTracker/internal/category/application"
	categoryErrors "github.com/sebuszqo/TimeTracker/internal/category/errors"
)

type Account struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	RootCategoryID int64     `json:"root_category_id,omitempty"`
}

// CategoryTree is the part of the category service an account needs.
type CategoryTree interface {
	SetupAccount(ctx context.Context, accountID int64) (int64, error)
	Root(ctx context.Context, accountID int64) (*application.Category, error)
}

type Service interface {
	CreateAccount(ctx context.Context) (*Account, error)
	GetAccount(ctx context.Context, id int64) (*Account, error)
}

type accountService struct {
	repo       Repository
	categories CategoryTree
	logger     *zap.Logger
}

func NewAccountService(repo Repository, categories CategoryTree, logger *zap.Logger) Service {
	return &accountService{
		repo:       repo,
		categories: categories,
		logger:     logger,
	}
}

// CreateAccount stores a new account and sets up its category tree. When the setup
// fails the account stays; its tree is created on the first category added to it.
func (s *accountService) CreateAccount(ctx context.Context) (*Account, error) {
	account, err := s.repo.createAccount(ctx)
	if err != nil {
		return nil, err
	}
	rootID, err := s.categories.SetupAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("could not set up categories of account %d: %w", account.ID, err)
	}
	account.RootCategoryID = rootID
	s.logger.Info("account created", zap.Int64("account_id", account.ID), zap.Int64("root_category_id", rootID))
	return account, nil
}

func (s *accountService) GetAccount(ctx context.Context, id int64) (*Account, error) {
	account, err := s.repo.getAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	root, err := s.categories.Root(ctx, id)
	switch {
	case err == nil:
		account.RootCategoryID = root.ID()
	case errors.Is(err, categoryErrors.ErrNotFound):
	default:
		return nil, err
	}
	return account, nil
}
