// Package mailparse turns raw RFC 5322 messages into text the scan rules
// understand.
package mailparse

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhillyerd/enmime"
)

// Message is the scan-relevant view of an email
type Message struct {
	ID          string
	From        string
	Sender      string
	ReplyTo     string
	Subject     string
	Text        string
	Attachments []string
}

// Parse reads one message
func Parse(r io.Reader) (*Message, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}

	m := &Message{
		From:    env.GetHeader("From"),
		Subject: env.GetHeader("Subject"),
		Text:    strings.TrimSpace(env.Text),
	}
	m.Sender = address(m.From)
	if list, err := env.AddressList("Reply-To"); err == nil && len(list) > 0 {
		m.ReplyTo = list[0].Address
	}
	if m.Text == "" {
		m.Text = strings.TrimSpace(env.HTML)
	}
	for _, part := range append(env.Attachments, env.Inlines...) {
		if part.FileName != "" {
			m.Attachments = append(m.Attachments, part.FileName)
		}
	}
	return m, nil
}

// LoadDir parses every .eml file in dir, sorted by name
func LoadDir(dir string) ([]*Message, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".eml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	out := make([]*Message, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		m, err := Parse(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		m.ID = name
		out = append(out, m)
	}
	return out, nil
}

// ReplyToMismatch reports a Reply-To address different from the sender
func (m *Message) ReplyToMismatch() bool {
	return m.ReplyTo != "" && !strings.EqualFold(m.ReplyTo, m.Sender)
}

// ScanText renders the message for the red-flag rules. A mismatching
// Reply-To is written without a From line so the mismatch rule fires,
// and attachment names are listed so extension rules see them.
func (m *Message) ScanText() string {
	var b strings.Builder
	if m.ReplyToMismatch() {
		fmt.Fprintf(&b, "Reply-To: %s\n", m.ReplyTo)
	}
	if m.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(m.Text)
	if len(m.Attachments) > 0 {
		fmt.Fprintf(&b, "\n\nAttachments: %s", strings.Join(m.Attachments, ", "))
	}
	return b.String()
}

func address(header string) string {
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return strings.TrimSpace(header)
	}
	return addr.Address
}
