// Package ics provides a Normaliser for iCalendar (.ics) files.
package ics

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles iCalendar documents.
type Normaliser struct{}

// New creates a new iCalendar normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/calendar"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

type event struct {
	summary     string
	description string
	location    string
	start       string
	end         string
	organizer   string
	attendees   []string
}

// Normalise renders every VEVENT as a block of labelled lines. The title is
// the first event summary, then the calendar name, then the file name.
func (n *Normaliser) Normalise(_ context.Context, in driven.NormaliseInput) (*driven.NormaliseResult, error) {
	calName, events := parse(in.Content)

	var sb strings.Builder
	for i, ev := range events {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		writeLine(&sb, "Event", ev.summary)
		writeLine(&sb, "When", formatDateTime(ev.start))
		writeLine(&sb, "Until", formatDateTime(ev.end))
		writeLine(&sb, "Where", ev.location)
		writeLine(&sb, "Organizer", ev.organizer)
		if len(ev.attendees) > 0 {
			writeLine(&sb, "Attendees", strings.Join(ev.attendees, ", "))
		}
		if ev.description != "" {
			sb.WriteString(ev.description)
			sb.WriteByte('\n')
		}
	}

	title := ""
	if len(events) > 0 && events[0].summary != "" {
		title = events[0].summary
		if len(events) > 1 {
			title += " (and more)"
		}
	}
	if title == "" {
		title = calName
	}
	if title == "" {
		title = extractTitleFromPath(in.Path)
	}

	meta := map[string]string{
		"mime_type": in.MIMEType,
		"format":    "ics",
	}
	if calName != "" {
		meta["calendar"] = calName
	}

	return &driven.NormaliseResult{
		Title:    title,
		Text:     strings.TrimSpace(sb.String()),
		Metadata: meta,
	}, nil
}

func writeLine(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(value)
	sb.WriteByte('\n')
}

// parse unfolds content lines and collects the calendar name and events.
func parse(content []byte) (string, []event) {
	var (
		calName string
		events  []event
		cur     *event
	)
	for _, line := range unfold(content) {
		name, params, value := splitProperty(line)
		switch {
		case name == "BEGIN" && value == "VEVENT":
			cur = &event{}
		case name == "END" && value == "VEVENT":
			if cur != nil {
				events = append(events, *cur)
			}
			cur = nil
		case name == "X-WR-CALNAME":
			calName = decodeValue(value)
		case cur == nil:
		case name == "SUMMARY":
			cur.summary = decodeValue(value)
		case name == "DESCRIPTION":
			cur.description = decodeValue(value)
		case name == "LOCATION":
			cur.location = decodeValue(value)
		case name == "DTSTART":
			cur.start = value
		case name == "DTEND":
			cur.end = value
		case name == "ORGANIZER":
			cur.organizer = participant(params, value)
		case name == "ATTENDEE":
			if p := participant(params, value); p != "" {
				cur.attendees = append(cur.attendees, p)
			}
		}
	}
	return calName, events
}

// unfold joins continuation lines, which start with a space or tab.
func unfold(content []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// splitProperty splits "NAME;PARAM=x:value" into its parts.
func splitProperty(line string) (name, params, value string) {
	head, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", ""
	}
	name, params, _ = strings.Cut(head, ";")
	return strings.ToUpper(name), params, value
}

// participant prefers the CN parameter and appends the address.
func participant(params, value string) string {
	email := extractEmail(value)
	cn := ""
	for _, p := range strings.Split(params, ";") {
		if k, v, ok := strings.Cut(p, "="); ok && strings.EqualFold(k, "CN") {
			cn = strings.Trim(v, `"`)
		}
	}
	switch {
	case cn != "" && email != "":
		return cn + " <" + email + ">"
	case cn != "":
		return cn
	default:
		return email
	}
}

// decodeValue undoes RFC 5545 text escaping.
func decodeValue(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			sb.WriteByte('\n')
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// formatDateTime renders DATE and DATE-TIME values for reading.
func formatDateTime(s string) string {
	if s == "" {
		return ""
	}
	if t, err := time.Parse("20060102", s); err == nil {
		return t.Format("January 2, 2006")
	}
	for _, layout := range []string{"20060102T150405Z", "20060102T150405"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("January 2, 2006 at 3:04 PM")
		}
	}
	return s
}

// extractEmail returns the address of a mailto URI or bare address.
func extractEmail(s string) string {
	if len(s) >= 7 && strings.EqualFold(s[:7], "mailto:") {
		s = s[7:]
	}
	if !strings.Contains(s, "@") || strings.ContainsAny(s, " \t") {
		return ""
	}
	return s
}

func extractTitleFromPath(path string) string {
	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
