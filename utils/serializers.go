package utils

import (
	"encoding/json"
	"time"

	"schooldesk_go/models"
)

// Compact representations used across APIs
type StudentShort struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Class   string `json:"class"`
	Section string `json:"section"`
}

type Sender struct {
	Type string `json:"type"` // "system" or "user"
	ID   *uint  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Recipient struct {
	Type string `json:"type"`
	ID   uint   `json:"id"`
}

type NotificationDTO struct {
	ID        uint        `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	UserID    uint        `json:"user_id"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Type      string      `json:"type"`
	Channels  []string    `json:"channels"`
	Data      models.JSON `json:"data,omitempty"`
	Read      bool        `json:"read"`
	ReadAt    *time.Time  `json:"read_at,omitempty"`
	Sender    Sender      `json:"sender"`
	Recipient Recipient   `json:"recipient"`
}

// ToNotificationDTO maps a models.Notification to the compact DTO.
func ToNotificationDTO(n models.Notification) NotificationDTO {
	channels := []string{}
	if !n.Channels.IsNull() {
		_ = json.Unmarshal(n.Channels, &channels)
	}
	return NotificationDTO{
		ID:        n.ID,
		CreatedAt: n.CreatedAt,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Channels:  channels,
		Data:      n.Data,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		// models don't track created_by; default to system
		Sender:    Sender{Type: "system", Name: "Notification Service"},
		Recipient: Recipient{Type: "user", ID: n.UserID},
	}
}

// ToStudentShort returns nil for a missing student so JSON renders null.
func ToStudentShort(s *models.Student) *StudentShort {
	if s == nil {
		return nil
	}
	return &StudentShort{ID: s.ID, Name: s.Name, Class: s.Class, Section: s.Section}
}
