package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"

	"fchat-backend/internal/domain"
	"fchat-backend/pkg/email"
	"fchat-backend/pkg/errors"
	"fchat-backend/pkg/metrics"
	"fchat-backend/pkg/sanitize"
)

// MessageRepository resolves the message being bridged
type MessageRepository interface {
	GetByID(roomID uuid.UUID, bucket int, messageID uuid.UUID) (*domain.Message, error)
}

// RoomRepository resolves the room and its membership
type RoomRepository interface {
	GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	GetMembers(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomMember, error)
	GetMemberPermissions(ctx context.Context, roomID, userID uuid.UUID) (*domain.MemberPermissions, error)
}

// UserDirectory resolves user contact details
type UserDirectory interface {
	GetEmailAddresses(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error)
	GetFullName(ctx context.Context, userID uuid.UUID) (string, error)
}

// Service bridges chat messages to email
type Service struct {
	messageRepo MessageRepository
	roomRepo    RoomRepository
	users       UserDirectory
	sender      email.Sender
	metrics     *metrics.Metrics
}

// NewService creates a new email bridge service
func NewService(
	messageRepo MessageRepository,
	roomRepo RoomRepository,
	users UserDirectory,
	sender email.Sender,
	m *metrics.Metrics,
) *Service {
	return &Service{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		users:       users,
		sender:      sender,
		metrics:     m,
	}
}

var messageTemplate = template.Must(template.New("message").Parse(`
<div style="font-family: sans-serif; max-width: 600px;">
  <h3>{{.RoomName}}</h3>
  <p><strong>{{.SenderName}}</strong> wrote at {{.SentAt}}:</p>
  <blockquote style="border-left: 3px solid #ccc; padding-left: 12px; color: #333;">{{.Content}}</blockquote>
  {{if .Note}}<p><em>{{.Note}}</em></p>{{end}}
  {{if .Attachments}}
  <p>Attachments:</p>
  <ul>
    {{range .Attachments}}<li><a href="{{.FileURL}}">{{.FileName}}</a></li>{{end}}
  </ul>
  {{end}}
</div>
`))

type templateData struct {
	RoomName    string
	SenderName  string
	SentAt      string
	Content     string
	Note        string
	Attachments []*domain.Attachment
}

// SendMessageViaEmail emails one chat message to the given recipients.
// When no recipients are supplied, every other room member with a stored
// address receives it.
func (s *Service) SendMessageViaEmail(ctx context.Context, roomID, messageID, userID uuid.UUID, bucket int, recipients []string, subject, note string) error {
	perms, err := s.roomRepo.GetMemberPermissions(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !perms.IsMember {
		return errors.PermissionDenied("you are not a member of this room")
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return errors.NotFound("room")
	}

	if bucket == 0 {
		bucket = domain.CalculateBucket(time.Now().UTC())
	}

	message, err := s.messageRepo.GetByID(roomID, bucket, messageID)
	if err != nil {
		return err
	}
	if message == nil {
		return errors.NotFound("message")
	}

	if len(recipients) == 0 {
		recipients, err = s.memberAddresses(ctx, roomID, userID)
		if err != nil {
			return err
		}
	}
	for _, addr := range recipients {
		if !sanitize.ValidEmail(addr) {
			return errors.ValidationError(fmt.Sprintf("invalid recipient address: %s", addr))
		}
	}
	if len(recipients) == 0 {
		return errors.ValidationError("no recipients resolved")
	}

	senderName, err := s.users.GetFullName(ctx, message.SenderID)
	if err != nil {
		senderName = message.SenderID.String()
	}

	if subject == "" {
		subject = fmt.Sprintf("Message from %s", room.Name)
	}

	var body bytes.Buffer
	err = messageTemplate.Execute(&body, &templateData{
		RoomName:    room.Name,
		SenderName:  senderName,
		SentAt:      message.CreatedAt.Format("Jan 2, 2006 15:04 MST"),
		Content:     message.Content,
		Note:        note,
		Attachments: message.Attachments,
	})
	if err != nil {
		return fmt.Errorf("failed to render email body: %w", err)
	}

	sendErr := s.sender.Send(ctx, &email.Email{
		To:      recipients,
		Subject: subject,
		HTML:    body.String(),
		Text:    message.Content,
	})
	s.metrics.RecordEmail(sendErr)
	if sendErr != nil {
		return fmt.Errorf("failed to send message email: %w", sendErr)
	}

	return nil
}

func (s *Service) memberAddresses(ctx context.Context, roomID, exclude uuid.UUID) ([]string, error) {
	members, err := s.roomRepo.GetMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var userIDs []uuid.UUID
	for _, m := range members {
		if m.UserID != exclude {
			userIDs = append(userIDs, m.UserID)
		}
	}

	emails, err := s.users.GetEmailAddresses(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	addresses := make([]string, 0, len(emails))
	for _, userID := range userIDs {
		if addr, ok := emails[userID]; ok {
			addresses = append(addresses, addr)
		}
	}

	return addresses, nil
}
