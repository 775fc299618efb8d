package moderation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/onnwee/ytmod/chat"
	"github.com/onnwee/ytmod/moderation"
)

// fakeChat records chat mutations in call order.
type fakeChat struct {
	deleteErr error
	postErr   error
	calls     []string
}

func (f *fakeChat) DeleteMessage(ctx context.Context, messageID string) error {
	f.calls = append(f.calls, "delete:"+messageID)
	return f.deleteErr
}

func (f *fakeChat) PostMessage(ctx context.Context, liveChatID, text string) (string, error) {
	f.calls = append(f.calls, "post:"+liveChatID+":"+text)
	if f.postErr != nil {
		return "", f.postErr
	}
	return "notice-1", nil
}

var testSession = chat.Session{BroadcastID: "b1", LiveChatID: "chat-1"}

func TestActOnViolationDeletesThenPosts(t *testing.T) {
	fc := &fakeChat{}
	ex := moderation.NewExecutor(fc)

	if err := ex.ActOnViolation(context.Background(), testSession, "m1", "VOLUNTARY EXILE"); err != nil {
		t.Fatalf("ActOnViolation: %v", err)
	}
	want := []string{"delete:m1", "post:chat-1:VOLUNTARY EXILE"}
	if fmt.Sprint(fc.calls) != fmt.Sprint(want) {
		t.Errorf("calls = %v, want %v", fc.calls, want)
	}
}

func TestActOnViolationDeleteFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind moderation.ActionKind
	}{
		{"not found", fmt.Errorf("%w: 404", chat.ErrNotFound), moderation.ActionNotFound},
		{"not authorized", fmt.Errorf("%w: 401", chat.ErrNotAuthorized), moderation.ActionNotAuthorized},
		{"unknown", errors.New("connection reset"), moderation.ActionUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeChat{deleteErr: tt.err}
			ex := moderation.NewExecutor(fc)

			err := ex.ActOnViolation(context.Background(), testSession, "m1", "reason")
			var ae *moderation.ActionError
			if !errors.As(err, &ae) {
				t.Fatalf("error = %v, want *ActionError", err)
			}
			if ae.Stage != moderation.StageDelete || ae.Kind != tt.wantKind || ae.MessageID != "m1" {
				t.Errorf("ActionError = %+v", ae)
			}
			if len(fc.calls) != 1 {
				t.Errorf("no post may follow a failed delete, calls = %v", fc.calls)
			}
		})
	}
}

func TestActOnViolationPostFailure(t *testing.T) {
	fc := &fakeChat{postErr: errors.New("quota exceeded")}
	ex := moderation.NewExecutor(fc)

	err := ex.ActOnViolation(context.Background(), testSession, "m1", "reason")
	var ae *moderation.ActionError
	if !errors.As(err, &ae) || ae.Stage != moderation.StagePost {
		t.Fatalf("error = %v, want post-stage *ActionError", err)
	}
	if !ae.Transient() {
		t.Error("post failure should be transient")
	}
}

func TestActionKindString(t *testing.T) {
	for kind, want := range map[moderation.ActionKind]string{
		moderation.ActionUnknown:       "unknown",
		moderation.ActionNotAuthorized: "not_authorized",
		moderation.ActionNotFound:      "not_found",
	} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
