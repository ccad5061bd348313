package domain

import (
	"fmt"
	"sort"

	categoryErrors "github.com/sebuszqo/TimeTracker/internal/category/errors"
)

// CheckParentAccount rejects a parent that is missing or lives in another account.
func CheckParentAccount(parent *Node, accountID int64) error {
	if parent == nil || parent.AccountID != accountID {
		return categoryErrors.ErrInconsistentParentAndAccount
	}
	return nil
}

// CheckMove validates relocating node under newParent. The root never moves, and the
// new parent may be neither the node itself nor one of its descendants.
func CheckMove(node, newParent Node) error {
	if node.IsRoot() {
		return categoryErrors.ErrRootImmutable
	}
	if newParent.ID == node.ID {
		return categoryErrors.ErrMoveIntoDescendant
	}
	if newParent.AccountID == node.AccountID && node.Interval().Contains(newParent.Interval()) {
		return categoryErrors.ErrMoveIntoDescendant
	}
	return nil
}

type Violation struct {
	NodeID int64
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("category %d: %s", v.NodeID, v.Reason)
}

// VerifyTree checks the nested-set invariants of one account's tree. nodes may come in
// any order. An empty tree is valid.
func VerifyTree(nodes []Node) []Violation {
	if len(nodes) == 0 {
		return nil
	}
	sorted := make([]Node, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Left < sorted[j].Left })

	var violations []Violation
	report := func(id int64, format string, args ...any) {
		violations = append(violations, Violation{NodeID: id, Reason: fmt.Sprintf(format, args...)})
	}

	accountID := sorted[0].AccountID
	roots := 0
	for _, n := range sorted {
		if n.IsRoot() {
			roots++
		}
		if n.AccountID != accountID {
			report(n.ID, "account %d differs from tree account %d", n.AccountID, accountID)
		}
		if n.Left >= n.Right {
			report(n.ID, "left %d not below right %d", n.Left, n.Right)
		}
		if (n.Right-n.Left)%2 == 0 {
			report(n.ID, "width %d is not even", n.Right-n.Left+1)
		}
	}
	if roots != 1 {
		report(sorted[0].ID, "expected exactly one root, found %d", roots)
	}

	root := sorted[0]
	if !root.IsRoot() {
		report(root.ID, "node with minimal left is not the root")
	}
	if root.Left != 1 {
		report(root.ID, "root left is %d, want 1", root.Left)
	}
	if root.Right != 2*len(sorted) {
		report(root.ID, "root right is %d, want %d for %d nodes", root.Right, 2*len(sorted), len(sorted))
	}

	// Walk in left order with a stack of open intervals: each node's parent must be the
	// innermost interval still open, and no interval may close inside another partially.
	var stack []Node
	for _, n := range sorted {
		for len(stack) > 0 && stack[len(stack)-1].Right < n.Left {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			if !n.IsRoot() {
				report(n.ID, "interval (%d,%d) lies outside every other node", n.Left, n.Right)
			}
		} else {
			enclosing := stack[len(stack)-1]
			if !enclosing.Interval().Contains(n.Interval()) {
				report(n.ID, "interval (%d,%d) partially overlaps (%d,%d) of category %d",
					n.Left, n.Right, enclosing.Left, enclosing.Right, enclosing.ID)
			}
			if n.ParentID == nil || *n.ParentID != enclosing.ID {
				report(n.ID, "parent_id does not match enclosing category %d", enclosing.ID)
			}
		}
		stack = append(stack, n)
	}

	seen := make(map[int]int64, 2*len(sorted))
	for _, n := range sorted {
		for _, b := range []int{n.Left, n.Right} {
			if other, dup := seen[b]; dup {
				report(n.ID, "bound %d already used by category %d", b, other)
				continue
			}
			seen[b] = n.ID
		}
	}
	return violations
}
