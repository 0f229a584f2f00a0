package scheduling

import (
	"context"
	"testing"
	"time"
)

func TestSendDueReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addWindow(t, f.doctor, Monday, At(9, 0), At(17, 0))

	due := f.book(t, f.mother, monday, At(10, 0))
	f.book(t, f.mother2, monday, At(13, 0))
	cancelled := f.book(t, f.mother2, monday, At(9, 0))
	if _, err := f.svc.TransitionAppointment(ctx, f.as(f.mother2), cancelled.ID, StatusCancelled, nil); err != nil {
		t.Fatal(err)
	}

	// Sunday noon: 10:00 Monday is 22h away, 13:00 is 25h away.
	f.clock.now = time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)
	before := len(f.sink.Sent())

	n, err := f.svc.SendDueReminders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reminder, got %d", n)
	}

	sent := f.sink.Sent()[before:]
	if len(sent) != 1 || sent[0].UserID != due.PatientID || sent[0].Title != "Appointment Reminder" {
		t.Fatalf("unexpected reminders: %+v", sent)
	}

	n, err = f.svc.SendDueReminders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second run must not repeat reminders, sent %d", n)
	}

	f.clock.now = time.Date(2024, 6, 9, 14, 0, 0, 0, time.UTC)
	if n, _ := f.svc.SendDueReminders(ctx); n != 1 {
		t.Fatalf("expected the 13:00 appointment to become due, got %d", n)
	}
}
