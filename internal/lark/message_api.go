package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/port"
)

// Receive id types accepted by the message API
const (
	ReceiveIDTypeOpenID = "open_id"
	ReceiveIDTypeUserID = "user_id"
	ReceiveIDTypeEmail  = "email"
	ReceiveIDTypeChatID = "chat_id"
)

// MessageAPI handles Lark messaging operations
type MessageAPI struct {
	client        *Client
	receiveIDType string
	logger        *zap.Logger
}

// NewMessageAPI creates a message API that addresses receivers by
// receiveIDType, open_id when empty
func NewMessageAPI(client *Client, receiveIDType string, logger *zap.Logger) *MessageAPI {
	if receiveIDType == "" {
		receiveIDType = ReceiveIDTypeOpenID
	}
	return &MessageAPI{
		client:        client,
		receiveIDType: receiveIDType,
		logger:        logger,
	}
}

var _ port.MessageSender = (*MessageAPI)(nil)

// SendMessage sends a message to a user or group and returns its id
func (m *MessageAPI) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := m.client.client.Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", receiveID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", receiveID))

	return messageID, nil
}

// SendText implements port.MessageSender
func (m *MessageAPI) SendText(ctx context.Context, receiveID string, text string) error {
	if receiveID == "" {
		return fmt.Errorf("receive id cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to encode text: %w", err)
	}

	_, err = m.SendMessage(ctx, m.receiveIDType, receiveID, larkim.MsgTypeText, string(content))
	return err
}
