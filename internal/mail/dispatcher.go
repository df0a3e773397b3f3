package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const invitationTimeLayout = "Mon, 02 Jan 2006 15:04 MST"

// Invitation describes the meeting an invitee is asked to join.
type Invitation struct {
	MeetingID      string
	Title          string
	Description    string
	JoinURL        string
	Start          time.Time
	End            time.Time
	OrganizerName  string
	OrganizerEmail string
}

// Dispatcher renders application mail and hands it to a Sender.
type Dispatcher struct {
	sender    Sender
	fromName  string
	fromEmail string
	logger    *slog.Logger
	now       func() time.Time
}

// NewDispatcher creates a Dispatcher sending as fromName <fromEmail>.
func NewDispatcher(sender Sender, fromName, fromEmail string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		fromName:  fromName,
		fromEmail: fromEmail,
		logger:    logger.With("component", "mail_dispatcher"),
		now:       time.Now,
	}
}

// SendWelcome greets a newly registered user.
func (d *Dispatcher) SendWelcome(ctx context.Context, to, fullName string) error {
	html, err := render(welcomeTemplate, welcomeData{AppName: d.fromName, FullName: fullName})
	if err != nil {
		return err
	}

	msg := &Message{
		FromName:  d.fromName,
		FromEmail: d.fromEmail,
		To:        to,
		Subject:   "Welcome to " + d.fromName,
		HTML:      html,
	}
	return d.send(ctx, "welcome", msg)
}

// SendInvitation mails one invitee with an invite.ics attachment.
func (d *Dispatcher) SendInvitation(ctx context.Context, to string, inv Invitation) error {
	organizer := inv.OrganizerName
	if organizer == "" {
		organizer = inv.OrganizerEmail
	}

	html, err := render(invitationTemplate, invitationData{
		Title:       inv.Title,
		Description: inv.Description,
		Organizer:   organizer,
		Start:       inv.Start.UTC().Format(invitationTimeLayout),
		End:         inv.End.UTC().Format(invitationTimeLayout),
		JoinURL:     inv.JoinURL,
	})
	if err != nil {
		return err
	}

	ics, err := BuildICS(Event{
		UID:            inv.MeetingID + "@meetly",
		Title:          inv.Title,
		Description:    inv.Description,
		JoinURL:        inv.JoinURL,
		Start:          inv.Start,
		End:            inv.End,
		OrganizerName:  inv.OrganizerName,
		OrganizerEmail: inv.OrganizerEmail,
	}, d.now())
	if err != nil {
		return err
	}

	msg := &Message{
		FromName:  d.fromName,
		FromEmail: d.fromEmail,
		To:        to,
		Subject:   "Invitation: " + inv.Title,
		HTML:      html,
		Attachments: []Attachment{{
			Filename:    "invite.ics",
			ContentType: `text/calendar; charset="UTF-8"; method=REQUEST`,
			Data:        ics,
		}},
	}
	return d.send(ctx, "invitation", msg)
}

func (d *Dispatcher) send(ctx context.Context, kind string, msg *Message) error {
	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.WarnContext(ctx, "email delivery failed",
			"kind", kind,
			"to", msg.To,
			"error", err,
		)
		return fmt.Errorf("deliver %s email: %w", kind, err)
	}
	return nil
}
