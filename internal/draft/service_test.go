package draft

import (
	"context"
	"errors"
	"testing"
)

type fakeGenerator struct {
	body string
	err  error
}

func (f *fakeGenerator) GenerateEmail(ctx context.Context, relationship, content Audio) (string, error) {
	return f.body, f.err
}

func TestGenerateAndTake(t *testing.T) {
	svc := NewService(&fakeGenerator{body: "Subject: Hello\n\nHi there."}, nil)

	d, err := svc.Generate(context.Background(), "u1", "c1", "rec-a", "rec-b",
		Audio{Data: []byte("x"), MIMEType: "audio/mpeg"},
		Audio{Data: []byte("y"), MIMEType: "audio/mpeg"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if d.Body == "" || d.ID == "" {
		t.Fatal("draft missing body or id")
	}

	got, err := svc.Get("u1", d.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ContactID != "c1" {
		t.Fatalf("contact = %q, want c1", got.ContactID)
	}

	taken, err := svc.Take("u1", d.ID)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if taken.ID != d.ID {
		t.Fatalf("taken id = %q, want %q", taken.ID, d.ID)
	}
	if _, err := svc.Take("u1", d.ID); err != ErrNotFound {
		t.Fatalf("second take err = %v, want ErrNotFound", err)
	}
}

func TestDraftOwnership(t *testing.T) {
	svc := NewService(&fakeGenerator{body: "body"}, nil)
	d, err := svc.Generate(context.Background(), "u1", "c1", "", "", Audio{}, Audio{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := svc.Get("u2", d.ID); err != ErrNotFound {
		t.Fatalf("cross-user get err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Take("u2", d.ID); err != ErrNotFound {
		t.Fatalf("cross-user take err = %v, want ErrNotFound", err)
	}
}

func TestGenerateFailure(t *testing.T) {
	genErr := errors.New("model unavailable")
	svc := NewService(&fakeGenerator{err: genErr}, nil)
	if _, err := svc.Generate(context.Background(), "u1", "c1", "", "", Audio{}, Audio{}); !errors.Is(err, genErr) {
		t.Fatalf("err = %v, want %v", err, genErr)
	}
}
