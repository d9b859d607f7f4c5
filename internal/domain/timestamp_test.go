package domain

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{input: "2026-03-14T09:30:00Z", want: want, ok: true},
		{input: "2026-03-14T09:30:00.000Z", want: want, ok: true},
		{input: "2026-03-14T10:30:00+01:00", want: want, ok: true},
		{input: "2026-03-14T09:30:00", want: want, ok: true},
		{input: "2026-03-14 09:30:00Z", want: want, ok: true},
		{input: "", ok: false},
		{input: "14/03/2026", ok: false},
		{input: "2026-03-14T09:30:00Zjunk", ok: false},
	}

	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseTimestamp(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestExtractTimestamp_FallbackOrder(t *testing.T) {
	created := "2026-03-14T08:00:00Z"
	indexed := "2026-03-14T09:00:00Z"

	tests := []struct {
		name   string
		record map[string]string
		fields map[string]string
		want   string
	}{
		{
			name:   "record createdAt wins",
			record: map[string]string{"createdAt": created},
			fields: map[string]string{"indexedAt": indexed},
			want:   created,
		},
		{
			name:   "malformed createdAt falls through to indexedAt",
			record: map[string]string{"createdAt": "garbage"},
			fields: map[string]string{"indexedAt": indexed},
			want:   indexed,
		},
		{
			name:   "snake case field",
			record: map[string]string{"created_at": created},
			want:   created,
		},
		{
			name:   "timestamp field",
			fields: map[string]string{"timestamp": indexed},
			want:   indexed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Post{Record: tt.record, Fields: tt.fields}
			got, ok := ExtractTimestamp(p, nil)
			if !ok {
				t.Fatal("expected a timestamp")
			}
			want, _ := ParseTimestamp(tt.want)
			if !got.Equal(want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestExtractTimestamp_None(t *testing.T) {
	if _, ok := ExtractTimestamp(&Post{}, nil); ok {
		t.Error("expected no timestamp for an empty post")
	}
}
