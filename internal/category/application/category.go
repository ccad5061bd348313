package application

import (
	"encoding/json"
	"slices"

	"github.com/sebuszqo/TimeTracker/internal/category/domain"
	categoryErrors "github.com/sebuszqo/TimeTracker/internal/category/errors"
)

type Field string

const (
	FieldName    Field = "name"
	FieldParent  Field = "parent_id"
	FieldAccount Field = "account_id"
)

// Category is a change-tracked category. Setters record the modified fields and Save
// persists only those.
type Category struct {
	id        int64
	accountID int64
	parentID  *int64
	name      string
	interval  domain.Interval

	// parent and account as last read from the repository, used to skip no-op relocations
	storedParent  *int64
	storedAccount int64
	modified      []Field
}

// NewCategory returns an unsaved category. Place it with SetParent or SetAccount before
// saving it.
func NewCategory(name string) *Category {
	return &Category{name: name}
}

func fromNode(n *domain.Node) *Category {
	c := &Category{}
	c.load(n)
	return c
}

func fromNodes(nodes []domain.Node) []*Category {
	out := make([]*Category, 0, len(nodes))
	for i := range nodes {
		out = append(out, fromNode(&nodes[i]))
	}
	return out
}

func (c *Category) load(n *domain.Node) {
	c.id = n.ID
	c.accountID = n.AccountID
	c.parentID = copyID(n.ParentID)
	c.storedParent = copyID(n.ParentID)
	c.storedAccount = n.AccountID
	c.name = n.Name
	c.interval = n.Interval()
	c.modified = nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func (c *Category) ID() int64 { return c.id }

func (c *Category) AccountID() int64 { return c.accountID }

// ParentID returns the parent id, or false for a root or an unplaced category.
func (c *Category) ParentID() (int64, bool) {
	if c.parentID == nil {
		return 0, false
	}
	return *c.parentID, true
}

func (c *Category) Name() string { return c.name }

// Interval is the nested-set position as of the last read or save.
func (c *Category) Interval() domain.Interval { return c.interval }

func (c *Category) IsSaved() bool { return c.id != 0 }

func (c *Category) IsRoot() bool { return c.IsSaved() && c.storedParent == nil }

func (c *Category) IsModified() bool { return len(c.modified) > 0 }

func (c *Category) Modified() []Field { return slices.Clone(c.modified) }

func (c *Category) modifiedField(f Field) bool { return slices.Contains(c.modified, f) }

func (c *Category) touch(f Field) {
	if !c.modifiedField(f) {
		c.modified = append(c.modified, f)
	}
}

func (c *Category) SetName(name string) {
	c.name = name
	c.touch(FieldName)
}

// SetParent places c under parent. parent must be a saved category.
func (c *Category) SetParent(parent *Category) error {
	if parent == nil || !parent.IsSaved() {
		return categoryErrors.ErrInvalidType
	}
	id := parent.id
	c.parentID = &id
	c.touch(FieldParent)
	return nil
}

// ClearParent detaches c from its parent. A saved category then moves under the root of
// its account.
func (c *Category) ClearParent() {
	c.parentID = nil
	c.touch(FieldParent)
}

// SetAccount selects the account tree. Without a parent change, a saved category moves
// under that account's root.
func (c *Category) SetAccount(accountID int64) {
	c.accountID = accountID
	c.touch(FieldAccount)
}

func (c *Category) Node() domain.Node {
	return domain.Node{
		ID:        c.id,
		AccountID: c.accountID,
		ParentID:  copyID(c.parentID),
		Name:      c.name,
		Left:      c.interval.Left,
		Right:     c.interval.Right,
	}
}

func (c *Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Node())
}
