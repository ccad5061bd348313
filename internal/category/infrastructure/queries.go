package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sebuszqo/TimeTracker/internal/category/domain"
	categoryErrors "github.com/sebuszqo/TimeTracker/internal/category/errors"
)

const categoryColumns = "id, account_id, parent_id, name, lft, rgt"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*domain.Node, error) {
	var (
		node     domain.Node
		parentID sql.NullInt64
	)
	if err := row.Scan(&node.ID, &node.AccountID, &parentID, &node.Name, &node.Left, &node.Right); err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.Int64
		node.ParentID = &id
	}
	return &node, nil
}

// queryNode runs a single-row category query. A missing row is NOT_FOUND.
func queryNode(ctx context.Context, q querier, op string, id int64, query string, args ...any) (*domain.Node, error) {
	node, err := scanNode(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, categoryErrors.NotFound("category", id)
		}
		return nil, categoryErrors.BadConnection(op, err)
	}
	return node, nil
}

func queryNodes(ctx context.Context, q querier, op string, query string, args ...any) ([]domain.Node, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, categoryErrors.BadConnection(op, err)
	}
	defer rows.Close()

	nodes := []domain.Node{}
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, categoryErrors.BadConnection(op, err)
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, categoryErrors.BadConnection(op, err)
	}
	return nodes, nil
}

// renumberStatement renders r as a single UPDATE over one account's tree, so every
// bound moves in the same statement and no row is ever visible half shifted.
func renumberStatement(accountID int64, r domain.Renumber) (string, []any) {
	args := []any{accountID}
	var lft, rgt strings.Builder
	lft.WriteString("CASE")
	rgt.WriteString("CASE")
	for _, band := range r {
		args = append(args, band.Above, band.Delta)
		above, delta := len(args)-1, len(args)
		fmt.Fprintf(&lft, " WHEN lft > $%d THEN lft + $%d", above, delta)
		fmt.Fprintf(&rgt, " WHEN rgt > $%d THEN rgt + $%d", above, delta)
	}
	lft.WriteString(" ELSE lft END")
	rgt.WriteString(" ELSE rgt END")
	args = append(args, r.Floor())

	query := fmt.Sprintf(
		"UPDATE category SET lft = %s, rgt = %s WHERE account_id = $1 AND rgt > $%d",
		lft.String(), rgt.String(), len(args),
	)
	return query, args
}

func renumber(ctx context.Context, tx *sql.Tx, accountID int64, r domain.Renumber) error {
	if len(r) == 0 {
		return nil
	}
	query, args := renumberStatement(accountID, r)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("renumber account %d: %w", accountID, err)
	}
	return nil
}
