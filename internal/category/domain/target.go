package domain

import categoryErrors "github.com/sebuszqo/TimeTracker/internal/category/errors"

// TargetKind tags how a new category's placement was requested.
type TargetKind int

const (
	TargetParent TargetKind = iota + 1
	TargetAccount
	TargetBoth
)

// Target is where a new category goes: under a parent, under an account's root, or
// under a parent that must belong to the given account.
type Target struct {
	Kind      TargetKind
	ParentID  int64
	AccountID int64
}

func UnderParent(parentID int64) Target {
	return Target{Kind: TargetParent, ParentID: parentID}
}

func UnderAccount(accountID int64) Target {
	return Target{Kind: TargetAccount, AccountID: accountID}
}

func UnderParentInAccount(parentID, accountID int64) Target {
	return Target{Kind: TargetBoth, ParentID: parentID, AccountID: accountID}
}

// NewTarget builds the target from optional ids. Neither set is
// INSUFFICIENT_PARENT_OR_ACCOUNT.
func NewTarget(parentID, accountID *int64) (Target, error) {
	switch {
	case parentID != nil && accountID != nil:
		return UnderParentInAccount(*parentID, *accountID), nil
	case parentID != nil:
		return UnderParent(*parentID), nil
	case accountID != nil:
		return UnderAccount(*accountID), nil
	default:
		return Target{}, categoryErrors.ErrInsufficientParentOrAccount
	}
}
