package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/sebuszqo/TimeTracker/internal/category/domain"
	categoryErrors "github.com/sebuszqo/TimeTracker/internal/category/errors"
)

var _ domain.CategoryRepository = (*MemoryRepository)(nil)

// MemoryRepository keeps category trees in process. Each mutation validates everything
// first and then applies under the write lock, so readers never see a partial change.
type MemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[int64]struct{}
	nodes    map[int64]*domain.Node
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[int64]struct{}),
		nodes:    make(map[int64]*domain.Node),
	}
}

// AddAccount registers an account id so its tree can be set up.
func (m *MemoryRepository) AddAccount(accountID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[accountID] = struct{}{}
}

func (m *MemoryRepository) root(accountID int64) *domain.Node {
	for _, n := range m.nodes {
		if n.AccountID == accountID && n.IsRoot() {
			return n
		}
	}
	return nil
}

func (m *MemoryRepository) renumber(accountID int64, r domain.Renumber) {
	floor := r.Floor()
	for _, n := range m.nodes {
		if n.AccountID != accountID || n.Right <= floor {
			continue
		}
		i := r.Apply(n.Interval())
		n.Left, n.Right = i.Left, i.Right
	}
}

func (m *MemoryRepository) insert(node domain.Node) *domain.Node {
	m.nextID++
	node.ID = m.nextID
	m.nodes[node.ID] = &node
	out := node
	return &out
}

func (m *MemoryRepository) Setup(_ context.Context, accountID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[accountID]; !ok {
		return 0, categoryErrors.NotFound("account", accountID)
	}
	if root := m.root(accountID); root != nil {
		return root.ID, nil
	}
	i := domain.RootInterval()
	return m.insert(domain.Node{AccountID: accountID, Left: i.Left, Right: i.Right}).ID, nil
}

func (m *MemoryRepository) Add(_ context.Context, accountID, parentID int64, name string) (*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent := m.nodes[parentID]
	if err := domain.CheckParentAccount(parent, accountID); err != nil {
		return nil, err
	}
	shift, slot := domain.PlanInsert(parent.Interval())
	m.renumber(accountID, shift)
	pid := parent.ID
	return m.insert(domain.Node{AccountID: accountID, ParentID: &pid, Name: name, Left: slot.Left, Right: slot.Right}), nil
}

func (m *MemoryRepository) Move(_ context.Context, nodeID, newParentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(nodeID, newParentID)
}

func (m *MemoryRepository) move(nodeID, newParentID int64) error {
	node, ok := m.nodes[nodeID]
	if !ok {
		return categoryErrors.NotFound("category", nodeID)
	}
	parent, ok := m.nodes[newParentID]
	if !ok {
		return categoryErrors.NotFound("category", newParentID)
	}
	if err := domain.CheckMove(*node, *parent); err != nil {
		return err
	}

	span := node.Interval()
	source, target := node.AccountID, parent.AccountID
	plan := domain.PlanMove(span)
	var subtree []*domain.Node
	for _, n := range m.nodes {
		if n.AccountID == source && n.Left >= span.Left && n.Right <= span.Right {
			subtree = append(subtree, n)
		}
	}
	for _, n := range subtree {
		parked := n.Interval().Translate(plan.Park)
		n.Left, n.Right = parked.Left, parked.Right
	}
	m.renumber(source, plan.Close)

	parentRight := parent.Right
	open, attach := domain.PlanReattach(span, parentRight)
	m.renumber(target, open)
	for _, n := range m.nodes {
		if n.AccountID != source || !domain.Parked(n.Right) {
			continue
		}
		attached := n.Interval().Translate(attach)
		n.Left, n.Right, n.AccountID = attached.Left, attached.Right, target
	}
	pid := parent.ID
	node.ParentID = &pid
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, nodeID int64, removeChildren bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[nodeID]
	if !ok {
		return categoryErrors.NotFound("category", nodeID)
	}
	span := node.Interval()

	if removeChildren {
		for id, n := range m.nodes {
			if n.AccountID == node.AccountID && n.Left >= span.Left && n.Right <= span.Right {
				delete(m.nodes, id)
			}
		}
		m.renumber(node.AccountID, domain.PlanRemoveSubtree(span))
		return nil
	}

	if node.IsRoot() {
		return categoryErrors.ErrRootImmutable
	}
	for _, n := range m.nodes {
		if n.ParentID != nil && *n.ParentID == node.ID {
			pid := *node.ParentID
			n.ParentID = &pid
		}
	}
	delete(m.nodes, nodeID)
	m.renumber(node.AccountID, domain.PlanRemoveNode(span))
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, nodeID int64, changes domain.Changes) (*domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[nodeID]
	if !ok {
		return nil, categoryErrors.NotFound("category", nodeID)
	}
	if changes.ParentID != nil {
		if err := m.move(nodeID, *changes.ParentID); err != nil {
			return nil, err
		}
	}
	if changes.Name != nil {
		node.Name = *changes.Name
	}
	out := *node
	return &out, nil
}

func (m *MemoryRepository) FindByID(_ context.Context, id int64) (*domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[id]
	if !ok {
		return nil, categoryErrors.NotFound("category", id)
	}
	out := *node
	return &out, nil
}

func (m *MemoryRepository) FindRoot(_ context.Context, accountID int64) (*domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	root := m.root(accountID)
	if root == nil {
		return nil, categoryErrors.NotFound("root category of account", accountID)
	}
	out := *root
	return &out, nil
}

// collect returns copies of the matching nodes ordered by left bound.
func (m *MemoryRepository) collect(match func(*domain.Node) bool) []domain.Node {
	nodes := []domain.Node{}
	for _, n := range m.nodes {
		if match(n) {
			nodes = append(nodes, *n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Left < nodes[j].Left })
	return nodes
}

func (m *MemoryRepository) FindChildren(_ context.Context, id int64) ([]domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collect(func(n *domain.Node) bool {
		return n.ParentID != nil && *n.ParentID == id
	}), nil
}

func (m *MemoryRepository) FindDescendants(_ context.Context, id int64) ([]domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[id]
	if !ok {
		return nil, categoryErrors.NotFound("category", id)
	}
	return m.collect(func(n *domain.Node) bool {
		return n.AccountID == node.AccountID && node.Interval().Contains(n.Interval())
	}), nil
}

func (m *MemoryRepository) FindAncestors(_ context.Context, id int64) ([]domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, ok := m.nodes[id]
	if !ok {
		return nil, categoryErrors.NotFound("category", id)
	}
	return m.collect(func(n *domain.Node) bool {
		return n.AccountID == node.AccountID && n.Interval().Contains(node.Interval())
	}), nil
}

func (m *MemoryRepository) FindByAccount(_ context.Context, accountID int64) ([]domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collect(func(n *domain.Node) bool { return n.AccountID == accountID }), nil
}

func (m *MemoryRepository) ListAccountIDs(_ context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
