package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sebuszqo/TimeTracker/internal/category/domain"
	categoryErrors "github.com/sebuszqo/TimeTracker/internal/category/errors"
	"github.com/sebuszqo/TimeTracker/internal/metrics"
)

// A node read without locks can change account before its tree is locked; the lookup is
// retried this many times before giving up.
const maxLockAttempts = 3

// errTreeChanged reports a node that kept changing account across every lock attempt.
// It reads as a conflict so callers can retry.
var errTreeChanged = &categoryErrors.Error{
	Code: categoryErrors.CodeInconsistentParentAndAccount,
	Msg:  "category moved to another account while locking",
}

// withTx runs fn in a READ COMMITTED transaction. Every statement issued after a row
// lock is granted sees the rows committed by the previous lock holder, which is what
// lets the mutators read bounds only after locking the tree root.
func (r *CategoryRepository) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveMutation(op, time.Since(start), err)
		if err != nil {
			r.logger.Debug("category tree mutation failed", zap.String("op", op), zap.Error(err))
		}
	}()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return categoryErrors.BadConnection("begin "+op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return categoryErrors.BadConnection(op, err)
	}
	if err = tx.Commit(); err != nil {
		return categoryErrors.BadConnection("commit "+op, err)
	}
	committed = true
	return nil
}

func lockAccount(ctx context.Context, tx *sql.Tx, accountID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM account WHERE id = $1 FOR UPDATE", accountID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return categoryErrors.NotFound("account", accountID)
	}
	return err
}

// lockRoot serializes writers of one account tree on its root row.
func lockRoot(ctx context.Context, tx *sql.Tx, accountID int64) (*domain.Node, error) {
	query := "SELECT " + categoryColumns + " FROM category WHERE account_id = $1 AND parent_id IS NULL FOR UPDATE"
	node, err := queryNode(ctx, tx, "lock root", accountID, query, accountID)
	if err != nil && categoryErrors.CodeOf(err) == categoryErrors.CodeNotFound {
		return nil, categoryErrors.NotFound("root category of account", accountID)
	}
	return node, err
}

// lockRoots locks the roots of every given account in ascending id order.
func lockRoots(ctx context.Context, tx *sql.Tx, accountIDs ...int64) error {
	if len(accountIDs) == 2 && accountIDs[0] > accountIDs[1] {
		accountIDs[0], accountIDs[1] = accountIDs[1], accountIDs[0]
	}
	for i, id := range accountIDs {
		if i > 0 && id == accountIDs[i-1] {
			continue
		}
		if _, err := lockRoot(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

func findNode(ctx context.Context, q querier, id int64, lock bool) (*domain.Node, error) {
	query := "SELECT " + categoryColumns + " FROM category WHERE id = $1"
	if lock {
		query += " FOR UPDATE"
	}
	return queryNode(ctx, q, "find category", id, query, id)
}

// lockNodes locks the trees the given nodes live in and returns their fresh rows.
func lockNodes(ctx context.Context, tx *sql.Tx, ids ...int64) ([]*domain.Node, error) {
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		accounts := make([]int64, 0, len(ids))
		for _, id := range ids {
			node, err := findNode(ctx, tx, id, false)
			if err != nil {
				return nil, err
			}
			accounts = append(accounts, node.AccountID)
		}
		if err := lockRoots(ctx, tx, append([]int64(nil), accounts...)...); err != nil {
			return nil, err
		}

		nodes := make([]*domain.Node, 0, len(ids))
		stable := true
		for i, id := range ids {
			node, err := findNode(ctx, tx, id, true)
			if err != nil {
				return nil, err
			}
			if node.AccountID != accounts[i] {
				stable = false
			}
			nodes = append(nodes, node)
		}
		if stable {
			return nodes, nil
		}
	}
	return nil, errTreeChanged
}

func (r *CategoryRepository) Setup(ctx context.Context, accountID int64) (int64, error) {
	var rootID int64
	err := r.withTx(ctx, "setup", func(tx *sql.Tx) error {
		if err := lockAccount(ctx, tx, accountID); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM category WHERE account_id = $1 AND parent_id IS NULL", accountID,
		).Scan(&rootID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		root := domain.RootInterval()
		return tx.QueryRowContext(ctx,
			"INSERT INTO category (account_id, parent_id, name, lft, rgt) VALUES ($1, NULL, '', $2, $3) RETURNING id",
			accountID, root.Left, root.Right,
		).Scan(&rootID)
	})
	if err != nil {
		return 0, err
	}
	return rootID, nil
}

func (r *CategoryRepository) Add(ctx context.Context, accountID, parentID int64, name string) (*domain.Node, error) {
	var node *domain.Node
	err := r.withTx(ctx, "add", func(tx *sql.Tx) error {
		if _, err := lockRoot(ctx, tx, accountID); err != nil {
			if categoryErrors.CodeOf(err) == categoryErrors.CodeNotFound {
				return categoryErrors.ErrInconsistentParentAndAccount
			}
			return err
		}
		parent, err := findNode(ctx, tx, parentID, true)
		if err != nil && categoryErrors.CodeOf(err) != categoryErrors.CodeNotFound {
			return err
		}
		if err := domain.CheckParentAccount(parent, accountID); err != nil {
			return err
		}

		shift, slot := domain.PlanInsert(parent.Interval())
		if err := renumber(ctx, tx, accountID, shift); err != nil {
			return err
		}

		node = &domain.Node{AccountID: accountID, ParentID: &parent.ID, Name: name, Left: slot.Left, Right: slot.Right}
		return tx.QueryRowContext(ctx,
			"INSERT INTO category (account_id, parent_id, name, lft, rgt) VALUES ($1, $2, $3, $4, $5) RETURNING id",
			accountID, parentID, name, slot.Left, slot.Right,
		).Scan(&node.ID)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (r *CategoryRepository) Move(ctx context.Context, nodeID, newParentID int64) error {
	return r.withTx(ctx, "move", func(tx *sql.Tx) error {
		return move(ctx, tx, nodeID, newParentID)
	})
}

// move relocates the subtree of nodeID to become the rightmost child of newParentID:
// park the subtree at non-positive bounds, close its gap, open a gap under the new
// parent and translate the parked rows into it.
func move(ctx context.Context, tx *sql.Tx, nodeID, newParentID int64) error {
	if nodeID == newParentID {
		return categoryErrors.ErrMoveIntoDescendant
	}
	locked, err := lockNodes(ctx, tx, nodeID, newParentID)
	if err != nil {
		return err
	}
	node, parent := locked[0], locked[1]
	if err := domain.CheckMove(*node, *parent); err != nil {
		return err
	}

	span := node.Interval()
	plan := domain.PlanMove(span)
	if _, err := tx.ExecContext(ctx,
		"UPDATE category SET lft = lft + $2, rgt = rgt + $2 WHERE account_id = $1 AND lft >= $3 AND rgt <= $4",
		node.AccountID, plan.Park, span.Left, span.Right,
	); err != nil {
		return fmt.Errorf("park subtree: %w", err)
	}
	if err := renumber(ctx, tx, node.AccountID, plan.Close); err != nil {
		return err
	}

	parentRight := parent.Right
	if parent.AccountID == node.AccountID {
		parentRight = plan.Close.Bound(parentRight)
	}
	open, attach := domain.PlanReattach(span, parentRight)
	if err := renumber(ctx, tx, parent.AccountID, open); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE category SET lft = lft + $2, rgt = rgt + $2, account_id = $3 WHERE account_id = $1 AND rgt <= $4",
		node.AccountID, attach, parent.AccountID, domain.ParkedCeiling,
	); err != nil {
		return fmt.Errorf("attach subtree: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE category SET parent_id = $2 WHERE id = $1", nodeID, newParentID); err != nil {
		return fmt.Errorf("reparent category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, nodeID int64, removeChildren bool) error {
	op := "delete_node"
	if removeChildren {
		op = "delete_subtree"
	}
	return r.withTx(ctx, op, func(tx *sql.Tx) error {
		locked, err := lockNodes(ctx, tx, nodeID)
		if err != nil {
			return err
		}
		node := locked[0]
		span := node.Interval()

		if removeChildren {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM category WHERE account_id = $1 AND lft >= $2 AND rgt <= $3",
				node.AccountID, span.Left, span.Right,
			); err != nil {
				return fmt.Errorf("delete subtree: %w", err)
			}
			return renumber(ctx, tx, node.AccountID, domain.PlanRemoveSubtree(span))
		}

		if node.IsRoot() {
			return categoryErrors.ErrRootImmutable
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE category SET parent_id = $2 WHERE parent_id = $1", node.ID, *node.ParentID,
		); err != nil {
			return fmt.Errorf("promote children: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM category WHERE id = $1", node.ID); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return renumber(ctx, tx, node.AccountID, domain.PlanRemoveNode(span))
	})
}

func (r *CategoryRepository) Update(ctx context.Context, nodeID int64, changes domain.Changes) (*domain.Node, error) {
	var node *domain.Node
	err := r.withTx(ctx, "update", func(tx *sql.Tx) error {
		if changes.ParentID != nil {
			if err := move(ctx, tx, nodeID, *changes.ParentID); err != nil {
				return err
			}
		}
		if changes.Name != nil {
			res, err := tx.ExecContext(ctx, "UPDATE category SET name = $2 WHERE id = $1", nodeID, *changes.Name)
			if err != nil {
				return fmt.Errorf("rename category: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return categoryErrors.NotFound("category", nodeID)
			}
		}
		var err error
		node, err = findNode(ctx, tx, nodeID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}
