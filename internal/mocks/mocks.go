package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/models"
	"chat-client/internal/repositories"
)

type MockUserRepo struct {
	mock.Mock
}

var _ repositories.UserRepository = (*MockUserRepo)(nil)

func (m *MockUserRepo) ListUsers(ctx context.Context) ([]models.Peer, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.Peer)
	return users, args.Error(1)
}

func (m *MockUserRepo) GetUser(ctx context.Context, id string) (models.Peer, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(models.Peer)
	return user, args.Error(1)
}

type MockMessageRepo struct {
	mock.Mock
}

var _ repositories.MessageRepository = (*MockMessageRepo)(nil)

func (m *MockMessageRepo) CreateMessage(ctx context.Context, send models.ChatSend, senderID string) (models.Message, error) {
	args := m.Called(ctx, send, senderID)
	msg, _ := args.Get(0).(models.Message)
	return msg, args.Error(1)
}

func (m *MockMessageRepo) GetConversation(ctx context.Context, userID, peerID string) ([]models.Message, error) {
	args := m.Called(ctx, userID, peerID)
	msgs, _ := args.Get(0).([]models.Message)
	return msgs, args.Error(1)
}

func (m *MockMessageRepo) MarkConversationRead(ctx context.Context, userID, peerID string) error {
	args := m.Called(ctx, userID, peerID)
	return args.Error(0)
}
