package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/fahmirid/backend_lancerhub/internal/models"
	"github.com/fahmirid/backend_lancerhub/internal/realtime"
)

type ChatHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	RDB *redis.Client
}

func NewChatHandler(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client) *ChatHandler {
	return &ChatHandler{DB: db, Hub: hub, RDB: rdb}
}

// CreateOrGetConversation opens (or returns) the single thread between the
// caller and the other party. Companies pass freelancer_id, freelancers pass
// company_id; job_id is an optional anchor.
func (h *ChatHandler) CreateOrGetConversation(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req struct {
		FreelancerID *string `json:"freelancer_id"`
		CompanyID    *string `json:"company_id"`
		JobID        *uint   `json:"job_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	var companyID, freelancerID uuid.UUID
	switch {
	case user.Role == models.RoleCompany && req.FreelancerID != nil:
		fID, err := uuid.Parse(*req.FreelancerID)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid freelancer ID")
		}
		companyID = userUUID
		freelancerID = fID
	case user.Role == models.RoleFreelancer && req.CompanyID != nil:
		cID, err := uuid.Parse(*req.CompanyID)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid company ID")
		}
		companyID = cID
		freelancerID = userUUID
	case req.JobID != nil:
		// freelancer opening a thread from a job posting
		var job models.Job
		if err := h.DB.First(&job, "id = ?", req.JobID).Error; err != nil {
			return fail(c, fiber.StatusNotFound, "Job not found")
		}
		companyID = job.CompanyID
		freelancerID = userUUID
	default:
		return fail(c, fiber.StatusBadRequest, "freelancer_id, company_id or job_id required")
	}

	var conv models.Conversation
	err = h.DB.
		Where("company_id = ? AND freelancer_id = ?", companyID, freelancerID).
		Order("updated_at DESC").
		First(&conv).Error

	created := false
	if err == gorm.ErrRecordNotFound {
		conv = models.Conversation{
			CompanyID:     companyID,
			FreelancerID:  freelancerID,
			JobID:         req.JobID,
			LastMessageAt: time.Now(),
		}
		if err := h.DB.Create(&conv).Error; err != nil {
			log.Println("[Chat] Error creating conversation:", err)
			return fail(c, fiber.StatusInternalServerError, "Failed to create conversation")
		}
		created = true
	} else if err != nil {
		log.Println("[Chat] Error fetching conversation:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch conversation")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"created": created,
		"data":    conv,
	})
}

type UserMini struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	FreelancerProfile *struct {
		DisplayName string `json:"display_name,omitempty"`
		PhotoURL    string `json:"photo_url,omitempty"`
	} `json:"freelancer_profile,omitempty"`
}

func userMini(u *models.User) *UserMini {
	if u == nil {
		return nil
	}
	mini := &UserMini{ID: u.ID.String(), Name: u.Name}
	if u.FreelancerProfile != nil {
		mini.FreelancerProfile = &struct {
			DisplayName string `json:"display_name,omitempty"`
			PhotoURL    string `json:"photo_url,omitempty"`
		}{
			DisplayName: u.FreelancerProfile.DisplayName,
			PhotoURL:    u.FreelancerProfile.PhotoURL,
		}
	}
	return mini
}

type MessageMini struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Type           string    `json:"type"`
	Text           string    `json:"text"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func messageMini(m *models.Message) *MessageMini {
	return &MessageMini{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID.String(),
		Type:           m.Type,
		Text:           m.Text,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

type ConversationOut struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	FreelancerID string    `json:"freelancer_id"`
	JobID        *uint     `json:"job_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	UnreadCount  int64     `json:"unread_count"`

	Company     *UserMini    `json:"company,omitempty"`
	Freelancer  *UserMini    `json:"freelancer,omitempty"`
	JobTitle    *string      `json:"job_title,omitempty"`
	LastMessage *MessageMini `json:"last_message,omitempty"`
}

// GetConversations returns the caller's conversations newest-activity first,
// each with its unread count and latest message.
func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var convs []models.Conversation
	if err := h.DB.
		Preload("Company").
		Preload("Freelancer").
		Preload("Freelancer.FreelancerProfile").
		Preload("Job").
		Where("company_id = ? OR freelancer_id = ?", userUUID, userUUID).
		Order("last_message_at DESC").
		Find(&convs).Error; err != nil {

		log.Println("[Chat] Error fetching conversations:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch conversations")
	}

	out := make([]ConversationOut, 0, len(convs))

	for _, conv := range convs {
		var unreadCount int64
		h.DB.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id != ? AND is_read = false", conv.ID, userUUID).
			Count(&unreadCount)

		var lastPtr *MessageMini
		var last models.Message
		if err := h.DB.
			Where("conversation_id = ?", conv.ID).
			Order("created_at DESC").
			Limit(1).
			First(&last).Error; err == nil {
			lastPtr = messageMini(&last)
		}

		var jobTitle *string
		if conv.Job != nil {
			jobTitle = &conv.Job.Title
		}

		out = append(out, ConversationOut{
			ID:           conv.ID.String(),
			CompanyID:    conv.CompanyID.String(),
			FreelancerID: conv.FreelancerID.String(),
			JobID:        conv.JobID,
			UpdatedAt:    conv.LastMessageAt,
			UnreadCount:  unreadCount,
			Company:      userMini(conv.Company),
			Freelancer:   userMini(conv.Freelancer),
			JobTitle:     jobTitle,
			LastMessage:  lastPtr,
		})
	}

	return ok(c, out)
}

// GetUnreadTotal counts unread messages addressed to the caller across all
// conversations.
func (h *ChatHandler) GetUnreadTotal(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var count int64
	err = h.DB.Model(&models.Message{}).
		Joins("JOIN conversations ON messages.conversation_id = conversations.id").
		Where("(conversations.company_id = ? OR conversations.freelancer_id = ?) AND messages.sender_id != ? AND messages.is_read = false",
			userUUID, userUUID, userUUID).
		Count(&count).Error
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to count unread messages")
	}

	return ok(c, count)
}

// loadConversation checks the caller is a member before returning the thread.
func (h *ChatHandler) loadConversation(c *fiber.Ctx) (*models.Conversation, uuid.UUID, error) {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return nil, uuid.Nil, fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	convUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, uuid.Nil, fail(c, fiber.StatusBadRequest, "Invalid conversation ID")
	}

	var conv models.Conversation
	if err := h.DB.First(&conv, "id = ?", convUUID).Error; err != nil {
		return nil, uuid.Nil, fail(c, fiber.StatusNotFound, "Conversation not found")
	}
	if conv.CompanyID != userUUID && conv.FreelancerID != userUUID {
		return nil, uuid.Nil, fail(c, fiber.StatusForbidden, "Access denied")
	}
	return &conv, userUUID, nil
}

// GetMessages returns the conversation's messages oldest first and marks the
// other party's messages as read. The optional ?after=<RFC3339> cursor limits
// the result to newer messages so clients can poll incrementally.
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	conv, userUUID, err := h.loadConversation(c)
	if err != nil {
		return err
	}

	q := h.DB.Where("conversation_id = ?", conv.ID)
	if after := c.Query("after"); after != "" {
		ts, err := time.Parse(time.RFC3339, after)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid after cursor, expected RFC3339")
		}
		q = q.Where("created_at > ?", ts)
	}

	var messages []models.Message
	if err := q.Order("created_at ASC").Find(&messages).Error; err != nil {
		log.Println("[Chat] Error fetching messages:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch messages")
	}

	if err := h.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ? AND is_read = false",
			conv.ID, userUUID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error; err != nil {
		// log only, the fetch itself succeeded
		log.Println("[Chat] Error marking messages as read:", err)
	}

	responses := make([]*MessageMini, 0, len(messages))
	for i := range messages {
		responses = append(responses, messageMini(&messages[i]))
	}

	return ok(c, responses)
}

// MarkAsRead marks the other party's messages in the conversation as read.
func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	conv, userUUID, err := h.loadConversation(c)
	if err != nil {
		return err
	}

	if err := h.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ? AND is_read = false",
			conv.ID, userUUID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error; err != nil {
		log.Println("[Chat] Error marking messages as read:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to mark messages as read")
	}

	return c.JSON(fiber.Map{"success": true})
}

// SendMessage appends a text message and pushes it to both parties.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	conv, userUUID, err := h.loadConversation(c)
	if err != nil {
		return err
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return fail(c, fiber.StatusBadRequest, "Text is required")
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       userUUID,
		Type:           "text",
		Text:           req.Text,
		IsRead:         false,
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		log.Println("[Chat] Error creating message:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to send message")
	}

	_ = h.DB.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		Update("last_message_at", msg.CreatedAt).Error

	msgResp := messageMini(&msg)

	h.Hub.SendToConversation(conv.CompanyID, conv.FreelancerID, fiber.Map{
		"type":    "new_message",
		"message": msgResp,
	})

	recipientID := conv.CompanyID
	if userUUID == conv.CompanyID {
		recipientID = conv.FreelancerID
	}
	if h.RDB != nil {
		notif := map[string]interface{}{
			"type":            "chat_message",
			"conversation_id": conv.ID.String(),
			"sender_id":       userUUID.String(),
			"text":            req.Text,
		}
		payload, _ := json.Marshal(notif)
		h.RDB.Publish(context.Background(), "notifications:"+recipientID.String(), payload)
	}

	return ok(c, msgResp)
}

// WebSocketHandler registers the connection with the hub and keeps it alive
// until the client goes away.
func (h *ChatHandler) WebSocketHandler(c *websocket.Conn) {
	userID := c.Query("user_id")
	if userID == "" {
		log.Println("WebSocket: user_id parameter missing")
		c.Close()
		return
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		log.Println("WebSocket: invalid user_id:", userID, "error:", err)
		c.Close()
		return
	}

	log.Printf("WebSocket: user %s connected\n", userID)

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Conn:   &realtime.WebSocketConn{Conn: c},
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Printf("WebSocket: user %s disconnected\n", userID)
	}()

	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Println("WebSocket write error:", err)
				return
			}
		}
	}()

	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			log.Printf("WebSocket read error for user %s: %v\n", userID, err)
			break
		}

		if msgType, ok := payload["type"].(string); ok && msgType == "pong" {
			continue
		}
	}
}
