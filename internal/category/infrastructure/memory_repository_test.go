package infrastructure

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebuszqo/TimeTracker/internal/category/domain"
	categoryErrors "github.com/sebuszqo/TimeTracker/internal/category/errors"
)

// requireValidTree fails the test when the account's tree breaks any nested-set invariant.
func requireValidTree(t *testing.T, repo domain.Reader, accountID int64) []domain.Node {
	t.Helper()
	nodes, err := repo.FindByAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.Empty(t, domain.VerifyTree(nodes))
	if len(nodes) > 0 {
		require.Equal(t, 2*len(nodes), nodes[0].Right)
	}
	return nodes
}

func bounds(t *testing.T, repo domain.Reader, id int64) domain.Interval {
	t.Helper()
	node, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return node.Interval()
}

type fruit struct {
	root, lemons, limes, oranges, four int64
}

// plantFruit builds root > Lemons, Limes > Oranges > 4 in account.
func plantFruit(t *testing.T, repo *MemoryRepository, account int64) fruit {
	t.Helper()
	ctx := context.Background()
	repo.AddAccount(account)

	var f fruit
	var err error
	f.root, err = repo.Setup(ctx, account)
	require.NoError(t, err)

	add := func(parent int64, name string) int64 {
		node, err := repo.Add(ctx, account, parent, name)
		require.NoError(t, err)
		return node.ID
	}
	f.lemons = add(f.root, "Lemons")
	f.limes = add(f.root, "Limes")
	f.oranges = add(f.limes, "Oranges")
	f.four = add(f.oranges, "4")
	return f
}

func TestMemoryRepository_FruitScenario(t *testing.T) {
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)

	assert.Equal(t, domain.Interval{Left: 1, Right: 10}, bounds(t, repo, f.root))
	assert.Equal(t, domain.Interval{Left: 2, Right: 3}, bounds(t, repo, f.lemons))
	assert.Equal(t, domain.Interval{Left: 4, Right: 9}, bounds(t, repo, f.limes))
	assert.Equal(t, domain.Interval{Left: 5, Right: 8}, bounds(t, repo, f.oranges))
	assert.Equal(t, domain.Interval{Left: 6, Right: 7}, bounds(t, repo, f.four))
	requireValidTree(t, repo, 1)
}

func TestMemoryRepository_SetupIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.AddAccount(3)

	first, err := repo.Setup(ctx, 3)
	require.NoError(t, err)
	second, err := repo.Setup(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	nodes := requireValidTree(t, repo, 3)
	assert.Len(t, nodes, 1)
	assert.Equal(t, "", nodes[0].Name)
}

func TestMemoryRepository_SetupUnknownAccount(t *testing.T) {
	_, err := NewMemoryRepository().Setup(context.Background(), 99)
	assert.ErrorIs(t, err, categoryErrors.ErrNotFound)
}

func TestMemoryRepository_AddRejectsForeignParent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)
	repo.AddAccount(2)

	_, err := repo.Add(ctx, 2, f.limes, "Grapes")
	assert.ErrorIs(t, err, categoryErrors.ErrInconsistentParentAndAccount)
	assert.Equal(t, "Category with requested parent_id and account_id not found", err.(*categoryErrors.Error).Msg)

	_, err = repo.Add(ctx, 1, 1000, "Grapes")
	assert.ErrorIs(t, err, categoryErrors.ErrInconsistentParentAndAccount)
	requireValidTree(t, repo, 1)
}

func TestMemoryRepository_MoveLeafToGrandparent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)

	require.NoError(t, repo.Move(ctx, f.four, f.limes))

	assert.Equal(t, domain.Interval{Left: 4, Right: 9}, bounds(t, repo, f.limes))
	assert.Equal(t, domain.Interval{Left: 5, Right: 6}, bounds(t, repo, f.oranges))
	assert.Equal(t, domain.Interval{Left: 7, Right: 8}, bounds(t, repo, f.four))

	node, err := repo.FindByID(ctx, f.four)
	require.NoError(t, err)
	assert.Equal(t, f.limes, *node.ParentID)
	requireValidTree(t, repo, 1)
}

func TestMemoryRepository_MoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)
	before := requireValidTree(t, repo, 1)

	require.NoError(t, repo.Move(ctx, f.oranges, f.lemons))
	requireValidTree(t, repo, 1)
	assert.Equal(t, domain.Interval{Left: 2, Right: 7}, bounds(t, repo, f.lemons))
	assert.Equal(t, domain.Interval{Left: 3, Right: 6}, bounds(t, repo, f.oranges))

	require.NoError(t, repo.Move(ctx, f.oranges, f.limes))
	assert.Equal(t, before, requireValidTree(t, repo, 1))
}

func TestMemoryRepository_MoveRejectsCycles(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)
	before := requireValidTree(t, repo, 1)

	err := repo.Move(ctx, f.limes, f.four)
	assert.ErrorIs(t, err, categoryErrors.ErrInconsistentParentAndAccount)
	assert.ErrorIs(t, repo.Move(ctx, f.limes, f.limes), categoryErrors.ErrMoveIntoDescendant)
	assert.ErrorIs(t, repo.Move(ctx, f.root, f.lemons), categoryErrors.ErrRootImmutable)
	assert.ErrorIs(t, repo.Move(ctx, 1000, f.lemons), categoryErrors.ErrNotFound)

	assert.Equal(t, before, requireValidTree(t, repo, 1))
}

func TestMemoryRepository_MoveAcrossAccounts(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)
	repo.AddAccount(2)
	otherRoot, err := repo.Setup(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, repo.Move(ctx, f.limes, otherRoot))

	source := requireValidTree(t, repo, 1)
	target := requireValidTree(t, repo, 2)
	assert.Len(t, source, 2)
	assert.Len(t, target, 4)
	for _, n := range target {
		assert.Equal(t, int64(2), n.AccountID)
	}
	assert.Equal(t, domain.Interval{Left: 2, Right: 7}, bounds(t, repo, f.limes))
	assert.Equal(t, domain.Interval{Left: 4, Right: 5}, bounds(t, repo, f.four))
}

func TestMemoryRepository_DeleteCascade(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)

	require.NoError(t, repo.Delete(ctx, f.limes, true))

	nodes := requireValidTree(t, repo, 1)
	assert.Len(t, nodes, 2)
	for _, id := range []int64{f.limes, f.oranges, f.four} {
		_, err := repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, categoryErrors.ErrNotFound)
	}
}

func TestMemoryRepository_DeletePromotesChildren(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)

	require.NoError(t, repo.Delete(ctx, f.limes, false))

	requireValidTree(t, repo, 1)
	assert.Equal(t, domain.Interval{Left: 4, Right: 7}, bounds(t, repo, f.oranges))
	assert.Equal(t, domain.Interval{Left: 5, Right: 6}, bounds(t, repo, f.four))

	children, err := repo.FindChildren(ctx, f.root)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, f.lemons, children[0].ID)
	assert.Equal(t, f.oranges, children[1].ID)
}

type family struct {
	root, work, projects, alpha, beta, review, gamma, home int64
}

// plantFamily builds root > Work, Projects > (Alpha, Beta > Review, Gamma), Home.
func plantFamily(t *testing.T, repo domain.Tree, account int64) family {
	t.Helper()
	ctx := context.Background()

	var f family
	var err error
	f.root, err = repo.Setup(ctx, account)
	require.NoError(t, err)

	add := func(parent int64, name string) int64 {
		node, err := repo.Add(ctx, account, parent, name)
		require.NoError(t, err)
		return node.ID
	}
	f.work = add(f.root, "Work")
	f.projects = add(f.root, "Projects")
	f.alpha = add(f.projects, "Alpha")
	f.beta = add(f.projects, "Beta")
	f.review = add(f.beta, "Review")
	f.gamma = add(f.projects, "Gamma")
	f.home = add(f.root, "Home")
	return f
}

// requirePromotedFamily checks the tree left after deleting Projects without its children.
func requirePromotedFamily(t *testing.T, repo domain.Reader, account int64, f family) {
	t.Helper()
	ctx := context.Background()
	requireValidTree(t, repo, account)

	children, err := repo.FindChildren(ctx, f.root)
	require.NoError(t, err)
	ids := make([]int64, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int64{f.work, f.alpha, f.beta, f.gamma, f.home}, ids)

	review, err := repo.FindChildren(ctx, f.beta)
	require.NoError(t, err)
	require.Len(t, review, 1)
	assert.Equal(t, f.review, review[0].ID)

	assert.Equal(t, domain.Interval{Left: 2, Right: 3}, bounds(t, repo, f.work))
	assert.Equal(t, domain.Interval{Left: 4, Right: 5}, bounds(t, repo, f.alpha))
	assert.Equal(t, domain.Interval{Left: 6, Right: 9}, bounds(t, repo, f.beta))
	assert.Equal(t, domain.Interval{Left: 7, Right: 8}, bounds(t, repo, f.review))
	assert.Equal(t, domain.Interval{Left: 10, Right: 11}, bounds(t, repo, f.gamma))
	assert.Equal(t, domain.Interval{Left: 12, Right: 13}, bounds(t, repo, f.home))
}

func TestMemoryRepository_DeletePromotesChildrenInOrder(t *testing.T) {
	repo := NewMemoryRepository()
	repo.AddAccount(1)
	f := plantFamily(t, repo, 1)
	assert.Equal(t, domain.Interval{Left: 4, Right: 13}, bounds(t, repo, f.projects))

	require.NoError(t, repo.Delete(context.Background(), f.projects, false))

	requirePromotedFamily(t, repo, 1, f)
}

func TestMemoryRepository_DeleteEdgeCases(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)

	assert.ErrorIs(t, repo.Delete(ctx, 1000, true), categoryErrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, f.root, false), categoryErrors.ErrRootImmutable)

	require.NoError(t, repo.Delete(ctx, f.root, true))
	nodes, err := repo.FindByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, nodes)

	_, err = repo.Add(ctx, 1, f.root, "Lemons")
	assert.ErrorIs(t, err, categoryErrors.ErrInconsistentParentAndAccount)

	_, err = repo.Setup(ctx, 1)
	require.NoError(t, err)
	requireValidTree(t, repo, 1)
}

func TestMemoryRepository_Reads(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)

	descendants, err := repo.FindDescendants(ctx, f.limes)
	require.NoError(t, err)
	require.Len(t, descendants, 2)
	assert.Equal(t, f.oranges, descendants[0].ID)
	assert.Equal(t, f.four, descendants[1].ID)

	ancestors, err := repo.FindAncestors(ctx, f.four)
	require.NoError(t, err)
	require.Len(t, ancestors, 3)
	assert.Equal(t, []int64{f.root, f.limes, f.oranges}, []int64{ancestors[0].ID, ancestors[1].ID, ancestors[2].ID})

	leaf, err := repo.FindDescendants(ctx, f.lemons)
	require.NoError(t, err)
	assert.Empty(t, leaf)

	_, err = repo.FindAncestors(ctx, 1000)
	assert.ErrorIs(t, err, categoryErrors.ErrNotFound)

	root, err := repo.FindRoot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, f.root, root.ID)
	_, err = repo.FindRoot(ctx, 42)
	assert.ErrorIs(t, err, categoryErrors.ErrNotFound)

	ids, err := repo.ListAccountIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestMemoryRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)

	name := "Tangerines"
	node, err := repo.Update(ctx, f.oranges, domain.Changes{Name: &name, ParentID: &f.root})
	require.NoError(t, err)
	assert.Equal(t, "Tangerines", node.Name)
	assert.Equal(t, f.root, *node.ParentID)
	assert.Equal(t, domain.Interval{Left: 6, Right: 9}, node.Interval())
	requireValidTree(t, repo, 1)

	_, err = repo.Update(ctx, f.oranges, domain.Changes{Name: &name, ParentID: &f.four})
	assert.ErrorIs(t, err, categoryErrors.ErrMoveIntoDescendant)
	unchanged, err := repo.FindByID(ctx, f.oranges)
	require.NoError(t, err)
	assert.Equal(t, domain.Interval{Left: 6, Right: 9}, unchanged.Interval())
}

func TestMemoryRepository_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	f := plantFruit(t, repo, 1)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(parent int64) {
			defer wg.Done()
			_, err := repo.Add(ctx, 1, parent, "leaf")
			assert.NoError(t, err)
		}([]int64{f.root, f.limes, f.oranges, f.lemons}[i%4])
	}
	wg.Wait()

	nodes := requireValidTree(t, repo, 1)
	assert.Len(t, nodes, 25)
}

func TestMemoryRepository_ConcurrentSetup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.AddAccount(7)

	ids := make([]int64, 8)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := repo.Setup(ctx, 7)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
	assert.Len(t, requireValidTree(t, repo, 7), 1)
}
