package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/verso-cms/server-verso/internal/interfaces"
)

// MockDatabaseManager is a testify mock of the DatabaseMgr interface.
type MockDatabaseManager struct {
	mock.Mock
}

func (m *MockDatabaseManager) GetPool() interfaces.PgxPoolIface {
	args := m.Called()
	return args.Get(0).(interfaces.PgxPoolIface)
}
