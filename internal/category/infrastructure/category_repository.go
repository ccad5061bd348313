package infrastructure

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/sebuszqo/TimeTracker/internal/category/domain"
	categoryErrors "github.com/sebuszqo/TimeTracker/internal/category/errors"
)

var _ domain.CategoryRepository = (*CategoryRepository)(nil)

// CategoryRepository stores account category trees in Postgres. Structural changes go
// through the tree mutator methods, each of which runs in its own transaction.
type CategoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewCategoryRepository(db *sql.DB, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{db: db, logger: logger}
}

func (r *CategoryRepository) FindByID(ctx context.Context, id int64) (*domain.Node, error) {
	query := "SELECT " + categoryColumns + " FROM category WHERE id = $1"
	return queryNode(ctx, r.db, "find category", id, query, id)
}

func (r *CategoryRepository) FindRoot(ctx context.Context, accountID int64) (*domain.Node, error) {
	query := "SELECT " + categoryColumns + " FROM category WHERE account_id = $1 AND parent_id IS NULL"
	node, err := queryNode(ctx, r.db, "find root", accountID, query, accountID)
	if err != nil && categoryErrors.CodeOf(err) == categoryErrors.CodeNotFound {
		return nil, categoryErrors.NotFound("root category of account", accountID)
	}
	return node, err
}

func (r *CategoryRepository) FindChildren(ctx context.Context, id int64) ([]domain.Node, error) {
	query := "SELECT " + categoryColumns + " FROM category WHERE parent_id = $1 ORDER BY lft"
	return queryNodes(ctx, r.db, "find children", query, id)
}

func (r *CategoryRepository) FindDescendants(ctx context.Context, id int64) ([]domain.Node, error) {
	query := `
		SELECT d.id, d.account_id, d.parent_id, d.name, d.lft, d.rgt
		FROM category n
		JOIN category d ON d.account_id = n.account_id AND d.lft > n.lft AND d.rgt < n.rgt
		WHERE n.id = $1
		ORDER BY d.lft`
	nodes, err := queryNodes(ctx, r.db, "find descendants", query, id)
	if err != nil || len(nodes) > 0 {
		return nodes, err
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *CategoryRepository) FindAncestors(ctx context.Context, id int64) ([]domain.Node, error) {
	query := `
		SELECT a.id, a.account_id, a.parent_id, a.name, a.lft, a.rgt
		FROM category n
		JOIN category a ON a.account_id = n.account_id AND a.lft < n.lft AND a.rgt > n.rgt
		WHERE n.id = $1
		ORDER BY a.lft`
	nodes, err := queryNodes(ctx, r.db, "find ancestors", query, id)
	if err != nil || len(nodes) > 0 {
		return nodes, err
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *CategoryRepository) FindByAccount(ctx context.Context, accountID int64) ([]domain.Node, error) {
	query := "SELECT " + categoryColumns + " FROM category WHERE account_id = $1 ORDER BY lft"
	return queryNodes(ctx, r.db, "find account categories", query, accountID)
}

func (r *CategoryRepository) ListAccountIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM account ORDER BY id")
	if err != nil {
		return nil, categoryErrors.BadConnection("list accounts", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, categoryErrors.BadConnection("list accounts", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, categoryErrors.BadConnection("list accounts", err)
	}
	return ids, nil
}
