package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	dir := identity.NewMemoryDirectory(time.UTC)
	doctor := dir.Add(identity.User{FirstName: "Grace", LastName: "Hopper", Role: identity.RoleDoctor, IsActive: true})
	mother := dir.Add(identity.User{FirstName: "Mary", LastName: "Jackson", Role: identity.RoleMother, IsActive: true})

	sink := &notification.Recorder{}
	cfg := config.Config{Location: time.UTC, SlotGranularity: 30 * time.Minute, SuggestionLimit: 5, ReminderLead: 24 * time.Hour}
	clock := scheduling.FixedClock(time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC))
	svc := scheduling.NewService(scheduling.NewMemoryRepository(), dir, sink, cfg, scheduling.WithClock(clock))

	_, err := svc.BookAppointment(ctx, identity.Actor{UserID: mother, Role: identity.RoleMother}, scheduling.BookingInput{
		DoctorID: doctor,
		Date:     time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC),
		Time:     scheduling.At(9, 0),
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	runOnce(ctx, svc, logger)
	runOnce(ctx, svc, logger)

	if got := len(sink.For(mother)); got != 1 {
		t.Errorf("expected one reminder across two runs, got %d", got)
	}
	if !strings.Contains(buf.String(), `"sent":1`) || !strings.Contains(buf.String(), `"sent":0`) {
		t.Errorf("unexpected log output: %s", buf.String())
	}
}
