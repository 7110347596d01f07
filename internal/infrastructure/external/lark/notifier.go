package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/urbanly/service-engine/internal/application/port"
	"go.uber.org/zap"
)

// RoleNotifier implements port.RoleNotifier by sending text messages to the
// Lark group chat mapped to each role. Roles without a mapping are an error:
// a misconfigured ladder should surface, not silently drop notifications.
type RoleNotifier struct {
	client    *Client
	roleChats map[string]string // role -> chat_id
	logger    *zap.Logger
}

// NewRoleNotifier creates a role notifier with the given role-to-chat map
func NewRoleNotifier(client *Client, roleChats map[string]string, logger *zap.Logger) *RoleNotifier {
	return &RoleNotifier{
		client:    client,
		roleChats: roleChats,
		logger:    logger,
	}
}

// Notify sends a text message to the chat assigned to the role
func (n *RoleNotifier) Notify(ctx context.Context, role string, instanceID int64, message, priority string) error {
	chatID, ok := n.roleChats[role]
	if !ok {
		return fmt.Errorf("no chat configured for role %s", role)
	}

	text := fmt.Sprintf("[%s] order #%d: %s", priority, instanceID, message)
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.client.client.Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("role", role),
			zap.Int64("instance_id", instanceID),
			zap.Error(err))
		return fmt.Errorf("failed to send notification: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("Lark API returned failure",
			zap.String("role", role),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	n.logger.Info("Notification delivered",
		zap.String("role", role),
		zap.Int64("instance_id", instanceID),
		zap.String("priority", priority))

	return nil
}

// Verify interface compliance
var _ port.RoleNotifier = (*RoleNotifier)(nil)
