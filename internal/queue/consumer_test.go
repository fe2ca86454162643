package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/parking-lot-admin/internal/model"
)

func TestHandleMessageAppendsLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	b := model.Booking{BookingID: "b-1", LotID: "lot-1", UserID: "u-9", SlotNumber: 4}
	lot := model.LotProfile{TotalSlots: 10, AvailableSlots: 7}

	for _, typ := range []string{EventBookingReserved, EventBookingDeparted} {
		body, _ := json.Marshal(NewBookingEvent(typ, b, lot, at))
		if err := handleMessage(dir, body); err != nil {
			t.Fatalf("handle %s: %v", typ, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), raw)
	}
	if !strings.Contains(lines[0], "Booking reserved") || !strings.Contains(lines[0], "available=7/10") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[2024-05-01T08:30:00Z] Vehicle departed") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	if err := handleMessage(dir, []byte("{not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if err := handleMessage(dir, []byte(`{"type":"booking.reserved"}`)); err == nil {
		t.Fatal("expected error for event without ids")
	}
	if _, err := os.Stat(filepath.Join(dir, "booking.log")); !os.IsNotExist(err) {
		t.Fatal("rejected messages must not create the log")
	}
}

func TestSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleep(ctx, time.Hour) {
		t.Fatal("sleep ignored a cancelled context")
	}
}
