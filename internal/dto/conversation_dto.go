package dto

import (
	"time"

	"deonai-be/internal/entity"

	"github.com/google/uuid"
)

type CreateConversationRequest struct {
	Title   *string `json:"title" validate:"omitempty,max=120"`
	ModelId string  `json:"model_id" validate:"required,max=200"`
}

type UpdateConversationRequest struct {
	Title string `json:"title" validate:"required,min=1,max=120"`
}

type ConversationResponse struct {
	Id        uuid.UUID  `json:"id"`
	UserId    string     `json:"user_id"`
	Title     string     `json:"title"`
	ModelId   string     `json:"model_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type MessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type DeleteConversationResponse struct {
	Deleted bool `json:"deleted"`
}

func NewConversationResponse(c *entity.Conversation) *ConversationResponse {
	return &ConversationResponse{
		Id:        c.Id,
		UserId:    c.UserId,
		Title:     c.Title,
		ModelId:   c.ModelId,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func NewConversationListResponse(cs []*entity.Conversation) []*ConversationResponse {
	res := make([]*ConversationResponse, 0, len(cs))
	for _, c := range cs {
		res = append(res, NewConversationResponse(c))
	}
	return res
}

func NewMessageListResponse(msgs []*entity.Message) []*MessageResponse {
	res := make([]*MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, &MessageResponse{
			Id:        m.Id,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return res
}
