package timeutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
)

func TestTimeMarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{"zero milliseconds", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), `"2024-01-15T10:30:00.000Z"`},
		{"with milliseconds", time.Date(2024, 1, 15, 10, 30, 0, 123000000, time.UTC), `"2024-01-15T10:30:00.123Z"`},
		{"nanoseconds truncated", time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC), `"2024-01-15T10:30:00.123Z"`},
		{"positive offset", time.Date(2024, 1, 15, 12, 30, 0, 0, time.FixedZone("CET", 2*60*60)), `"2024-01-15T10:30:00.000Z"`},
		{"negative offset", time.Date(2024, 1, 15, 5, 30, 0, 0, time.FixedZone("EST", -5*60*60)), `"2024-01-15T10:30:00.000Z"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(NewTime(tt.input))
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.expected {
				t.Fatalf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestTimeUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"millis", `"2024-01-15T10:30:00.123Z"`, time.Date(2024, 1, 15, 10, 30, 0, 123000000, time.UTC), false},
		{"seconds only", `"2024-01-15T10:30:00Z"`, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"offset", `"2024-01-15T12:30:00+02:00"`, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"garbage", `"yesterday"`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Time
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got.Time)
			}
		})
	}
}

func TestTimeUnmarshalJSONNullPreservesValue(t *testing.T) {
	orig := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	got := NewTime(orig)
	if err := json.Unmarshal([]byte("null"), &got); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !got.Equal(orig) {
		t.Fatalf("expected value to be preserved, got %v", got.Time)
	}
}

func TestTimeCBOREncodesTextString(t *testing.T) {
	in := NewTime(time.Date(2024, 1, 15, 10, 30, 0, 123000000, time.UTC))
	data, err := cbor.Marshal(in)
	if err != nil {
		t.Fatalf("cbor marshal: %v", err)
	}

	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		t.Fatalf("expected CBOR text string: %v", err)
	}
	if s != "2024-01-15T10:30:00.123Z" {
		t.Fatalf("unexpected CBOR text %q", s)
	}

	var out Time
	if err := cbor.Unmarshal(data, &out); err != nil {
		t.Fatalf("cbor unmarshal: %v", err)
	}
	if !out.Equal(in.Time) {
		t.Fatalf("expected %v, got %v", in.Time, out.Time)
	}
}

func TestTimeSchema(t *testing.T) {
	s := Time{}.Schema(huma.NewMapRegistry("#/components/schemas/", huma.DefaultSchemaNamer))
	if s.Type != huma.TypeString || s.Format != "date-time" {
		t.Fatalf("unexpected schema: %+v", s)
	}
}

func TestNowIsUTCRepresentable(t *testing.T) {
	before := time.Now().Add(-time.Second)
	now := Now()
	if now.Before(before) {
		t.Fatalf("Now() returned a stale time: %v", now.Time)
	}
	if len(now.String()) != len(RFC3339Millis) {
		t.Fatalf("unexpected string form %q", now.String())
	}
}
