package mail

import (
	"bytes"
	"fmt"
	"net/url"
	"time"

	"github.com/emersion/go-ical"
)

const calendarProductID = "-//Meetly//Meeting Invitation//EN"

// Event is the calendar entry attached to an invitation.
type Event struct {
	UID            string
	Title          string
	Description    string
	JoinURL        string
	Start          time.Time
	End            time.Time
	OrganizerName  string
	OrganizerEmail string
}

// BuildICS encodes the event as an iCalendar REQUEST so mail clients offer
// to add it to the recipient's calendar.
func BuildICS(ev Event, stamp time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, calendarProductID)
	cal.Props.SetText(ical.PropMethod, "REQUEST")

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, ev.UID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	event.Props.SetText(ical.PropSummary, ev.Title)
	if ev.Description != "" {
		event.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.JoinURL != "" {
		if u, err := url.Parse(ev.JoinURL); err == nil {
			event.Props.SetURI(ical.PropURL, u)
		}
		event.Props.SetText(ical.PropLocation, ev.JoinURL)
	}
	if ev.OrganizerEmail != "" {
		organizer := ical.NewProp(ical.PropOrganizer)
		organizer.Value = "mailto:" + ev.OrganizerEmail
		if ev.OrganizerName != "" {
			organizer.Params.Set(ical.ParamCommonName, ev.OrganizerName)
		}
		event.Props.Set(organizer)
	}

	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
