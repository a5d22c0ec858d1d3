package database

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/babelchat/server/internal/types"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) IsMember(ctx context.Context, roomId, userId string) (bool, error) {
	args := m.Called(ctx, roomId, userId)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatRepository) ListMembers(ctx context.Context, roomId string) ([]string, error) {
	args := m.Called(ctx, roomId)
	if members, ok := args.Get(0).([]string); ok {
		return members, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatRepository) ListRooms(ctx context.Context, userId string) ([]string, error) {
	args := m.Called(ctx, userId)
	if rooms, ok := args.Get(0).([]string); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatRepository) SaveMessage(ctx context.Context, msg types.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *MockChatRepository) AppendReader(ctx context.Context, messageId, userId string) (bool, error) {
	args := m.Called(ctx, messageId, userId)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatRepository) MessageExists(ctx context.Context, messageId string) (bool, error) {
	args := m.Called(ctx, messageId)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatRepository) GetMessages(ctx context.Context, roomId string, limit int) ([]types.Message, error) {
	args := m.Called(ctx, roomId, limit)
	if msgs, ok := args.Get(0).([]types.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockChatRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
