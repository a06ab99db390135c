package gmail

import (
	"testing"

	gmailapi "google.golang.org/api/gmail/v1"
)

func TestFlattenParts(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/plain"},
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/html"},
					{MimeType: "application/pdf", Filename: "statement.pdf"},
				},
			},
		},
	}

	parts := flattenParts(payload)
	if len(parts) != 5 {
		t.Fatalf("got %d parts, want 5", len(parts))
	}

	var found bool
	for _, p := range parts {
		if p.Filename == "statement.pdf" {
			found = true
		}
	}
	if !found {
		t.Error("nested PDF attachment not reached")
	}
}

func TestFlattenPartsNil(t *testing.T) {
	if parts := flattenParts(nil); parts != nil {
		t.Errorf("flattenParts(nil) = %v, want nil", parts)
	}
}
