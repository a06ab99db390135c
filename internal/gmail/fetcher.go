// Package gmail pulls bank statement PDFs out of a Gmail mailbox so the
// statement worker can import them without manual uploads.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	goption "google.golang.org/api/option"
)

// Statement is one fetched PDF attachment.
type Statement struct {
	MessageID string
	Filename  string
	Data      []byte
}

type Fetcher struct {
	svc   *gmailapi.Service
	label string
	query string
}

// NewFromFiles builds a Fetcher from an OAuth client secret file and a saved
// user token file. The token is obtained once out of band with the usual
// consent flow and refreshed automatically afterwards.
func NewFromFiles(ctx context.Context, clientFile, tokenFile, label, query string) (*Fetcher, error) {
	secret, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	config, err := google.ConfigFromJSON(secret, gmailapi.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client file: %w", err)
	}

	tokenBytes, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenBytes, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token file: %w", err)
	}

	svc, err := gmailapi.NewService(ctx, goption.WithHTTPClient(config.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}

	return &Fetcher{svc: svc, label: label, query: query}, nil
}

// FetchStatements downloads every PDF attachment matching the configured
// label and query. Messages without a PDF attachment are skipped.
func (f *Fetcher) FetchStatements(ctx context.Context) ([]Statement, error) {
	call := f.svc.Users.Messages.List("me").Context(ctx)
	if f.label != "" {
		call = call.LabelIds(f.label)
	}
	if f.query != "" {
		call = call.Q(f.query)
	}

	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var statements []Statement
	for _, ref := range list.Messages {
		msg, err := f.svc.Users.Messages.Get("me", ref.Id).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", ref.Id, err)
		}
		for _, part := range flattenParts(msg.Payload) {
			if !strings.HasSuffix(strings.ToLower(part.Filename), ".pdf") || part.Body == nil {
				continue
			}
			data, err := f.attachmentData(ctx, ref.Id, part)
			if err != nil {
				return nil, err
			}
			statements = append(statements, Statement{
				MessageID: ref.Id,
				Filename:  part.Filename,
				Data:      data,
			})
		}
	}
	return statements, nil
}

// MarkProcessed removes the UNREAD label so a statement is fetched once.
func (f *Fetcher) MarkProcessed(ctx context.Context, messageID string) error {
	_, err := f.svc.Users.Messages.Modify("me", messageID, &gmailapi.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("mark message %s processed: %w", messageID, err)
	}
	return nil
}

func (f *Fetcher) attachmentData(ctx context.Context, messageID string, part *gmailapi.MessagePart) ([]byte, error) {
	raw := part.Body.Data
	if raw == "" && part.Body.AttachmentId != "" {
		att, err := f.svc.Users.Messages.Attachments.Get("me", messageID, part.Body.AttachmentId).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("get attachment %s: %w", part.Filename, err)
		}
		raw = att.Data
	}
	// Gmail emits unpadded base64url.
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return nil, fmt.Errorf("decode attachment %s: %w", part.Filename, err)
	}
	return data, nil
}

// flattenParts walks the MIME tree depth first; attachments can nest under
// multipart containers.
func flattenParts(payload *gmailapi.MessagePart) []*gmailapi.MessagePart {
	if payload == nil {
		return nil
	}
	parts := []*gmailapi.MessagePart{payload}
	for _, child := range payload.Parts {
		parts = append(parts, flattenParts(child)...)
	}
	return parts
}
