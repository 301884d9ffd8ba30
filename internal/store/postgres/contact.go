package postgres

import (
	"context"

	"travelbook/internal/models"

	"github.com/google/uuid"
)

func (s *Store) CreateContactMessage(ctx context.Context, msg models.ContactMessage) (models.ContactMessage, error) {
	msg.MessageID = uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO contact_messages (message_id, name, email, subject, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, msg.MessageID, msg.Name, msg.Email, msg.Subject, msg.Body)
	if err := row.Scan(&msg.CreatedAt); err != nil {
		return models.ContactMessage{}, err
	}
	return msg, nil
}
