package session

import "github.com/stretchr/testify/mock"

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load() (Credentials, error) {
	args := m.Called()
	return args.Get(0).(Credentials), args.Error(1)
}

func (m *MockStore) Save(creds Credentials) error {
	args := m.Called(creds)
	return args.Error(0)
}

func (m *MockStore) Clear() error {
	args := m.Called()
	return args.Error(0)
}
