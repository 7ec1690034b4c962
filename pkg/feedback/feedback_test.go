package feedback_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formblocks/pkg/feedback"
)

func TestRecorder_KeepsOrder(t *testing.T) {
	var rec feedback.Recorder
	ctx := context.Background()

	if _, ok := rec.Last(); ok {
		t.Fatalf("empty recorder reported a message")
	}

	rec.Present(ctx, feedback.Error("login.unknown_error"))
	rec.Present(ctx, feedback.Success("Saved"))

	want := []feedback.Message{
		{Kind: feedback.KindError, Key: "login.unknown_error"},
		{Kind: feedback.KindSuccess, Text: "Saved"},
	}
	if diff := cmp.Diff(want, rec.Messages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if last, _ := rec.Last(); last.Text != "Saved" {
		t.Fatalf("unexpected last message %#v", last)
	}

	rec.Reset()
	if len(rec.Messages()) != 0 {
		t.Fatalf("reset kept messages")
	}
}

func TestMulti_FansOut(t *testing.T) {
	var a, b feedback.Recorder
	feedback.Multi(&a, nil, &b).Present(context.Background(), feedback.Error("error.no_permission"))

	if len(a.Messages()) != 1 || len(b.Messages()) != 1 {
		t.Fatalf("expected both recorders to receive the message")
	}
}

func TestKind_String(t *testing.T) {
	if feedback.KindError.String() != "error" || feedback.KindSuccess.String() != "success" {
		t.Fatalf("unexpected kind labels")
	}
}
