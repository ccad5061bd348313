package interfaces

import (
	"context"

	"github.com/sebuszqo/TimeTracker/internal/category/application"
)

// MockCategoryService fails every call with err.
type MockCategoryService struct {
	err error
}

func (m *MockCategoryService) Create(context.Context, application.CreateInput) (*application.Category, error) {
	return nil, m.err
}

func (m *MockCategoryService) Fetch(context.Context, int64) (*application.Category, error) {
	return nil, m.err
}

func (m *MockCategoryService) Save(context.Context, *application.Category) error {
	return m.err
}

func (m *MockCategoryService) Children(context.Context, *application.Category) ([]*application.Category, error) {
	return nil, m.err
}

func (m *MockCategoryService) Descendants(context.Context, *application.Category) ([]*application.Category, error) {
	return nil, m.err
}

func (m *MockCategoryService) Ancestors(context.Context, *application.Category) ([]*application.Category, error) {
	return nil, m.err
}

func (m *MockCategoryService) FindForAccount(context.Context, int64) ([]*application.Category, error) {
	return nil, m.err
}

func (m *MockCategoryService) Delete(context.Context, *application.Category, bool) error {
	return m.err
}
