package main

import (
	"chat-inbox/contract"
	"chat-inbox/domain"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

const maxPreview = 40

// tableSink prints every materialized inbox as a table, newest first.
type tableSink struct {
	mu       sync.Mutex
	out      io.Writer
	auth     contract.AuthBackend
	profiles contract.ProfileStore
	colours  bool
}

func newTableSink(out io.Writer, auth contract.AuthBackend, profiles contract.ProfileStore, colours bool) *tableSink {
	return &tableSink{out: out, auth: auth, profiles: profiles, colours: colours}
}

func (s *tableSink) Publish(ctx context.Context, inbox domain.Inbox) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, _ := s.auth.CurrentUserID()
	header := fmt.Sprintf("  ====== Inbox (%d conversations) ======", len(inbox))
	if s.colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Fprintln(s.out, header)

	table := tablewriter.NewWriter(s.out)
	table.SetHeader([]string{"Partner", "Last message", "At"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("\t")

	for _, msg := range inbox {
		partnerID, ok := msg.ChatPartnerID(owner)
		if !ok {
			continue
		}
		table.Append([]string{s.partnerName(ctx, string(partnerID)), preview(msg), formatTimestamp(msg.Timestamp)})
	}
	table.Render()
}

func (s *tableSink) partnerName(ctx context.Context, partnerID string) string {
	fields, err := s.profiles.Read(ctx, partnerID)
	if err != nil || fields.Name == "" {
		return partnerID
	}
	return fields.Name
}

func preview(msg domain.Message) string {
	text := msg.Text
	if text == "" && msg.ImageURL != nil {
		return "[image]"
	}
	if r := []rune(text); len(r) > maxPreview {
		text = string(r[:maxPreview]) + "..."
	}
	return text
}

func formatTimestamp(ts *int64) string {
	if ts == nil {
		return "--:--:--"
	}
	return time.UnixMilli(*ts).Format("15:04:05")
}

// consoleListener reports the registration outcome on the terminal.
type consoleListener struct {
	log *slog.Logger
	out io.Writer
}

func (l consoleListener) OnRegistered(name string) {
	fmt.Fprintln(l.out, color.New(color.FgGreen).Render("Welcome "+name))
}

func (l consoleListener) OnClosed() {
	l.log.Debug("Registration flow closed")
}

func (l consoleListener) OnFailed(err error) {
	fmt.Fprintln(l.out, color.New(color.FgRed).Render("Registration failed: "+err.Error()))
}
