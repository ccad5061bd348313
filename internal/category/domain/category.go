package domain

import "context"

// Node is a stored category row: its place in the account tree plus its label.
type Node struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	ParentID  *int64 `json:"parent_id"`
	Name      string `json:"name"`
	Left      int    `json:"left"`
	Right     int    `json:"right"`
}

func (n Node) IsRoot() bool { return n.ParentID == nil }

func (n Node) Interval() Interval { return Interval{Left: n.Left, Right: n.Right} }

// Changes lists the fields of an existing category to persist. Nil fields are untouched.
// A non-nil ParentID relocates the node; Name is a plain field update.
type Changes struct {
	Name     *string
	ParentID *int64
}

func (c Changes) Empty() bool { return c.Name == nil && c.ParentID == nil }

// Tree is the transactional mutator. Every call runs as one atomic unit: on failure no
// renumbering is left behind.
type Tree interface {
	Setup(ctx context.Context, accountID int64) (int64, error)
	Add(ctx context.Context, accountID, parentID int64, name string) (*Node, error)
	Move(ctx context.Context, nodeID, newParentID int64) error
	Delete(ctx context.Context, nodeID int64, removeChildren bool) error
	// Update applies a relocation and plain field changes in one transaction.
	Update(ctx context.Context, nodeID int64, changes Changes) (*Node, error)
}

type Reader interface {
	FindByID(ctx context.Context, id int64) (*Node, error)
	FindRoot(ctx context.Context, accountID int64) (*Node, error)
	FindChildren(ctx context.Context, id int64) ([]Node, error)
	FindDescendants(ctx context.Context, id int64) ([]Node, error)
	FindAncestors(ctx context.Context, id int64) ([]Node, error)
	// FindByAccount returns the whole tree ordered by left bound.
	FindByAccount(ctx context.Context, accountID int64) ([]Node, error)
	ListAccountIDs(ctx context.Context) ([]int64, error)
}

type CategoryRepository interface {
	Tree
	Reader
}
