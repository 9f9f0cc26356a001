package clock

import (
	"errors"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "offset is subtracted",
			in:   time.Date(2024, 3, 10, 12, 0, 0, 0, berlin),
			want: time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC),
		},
		{
			name: "negative offset crosses midnight",
			in:   time.Date(2024, 3, 10, 22, 30, 0, 0, time.FixedZone("EST", -5*3600)),
			want: time.Date(2024, 3, 11, 3, 30, 0, 0, time.UTC),
		},
		{
			name: "naive value unchanged",
			in:   time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "sub-second precision dropped",
			in:   time.Date(2024, 3, 10, 12, 0, 0, 999, time.UTC),
			want: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if !got.Equal(tt.want) || got.Location() != time.UTC {
				t.Errorf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := time.Date(2024, 7, 1, 8, 15, 42, 123456, time.FixedZone("", 2*3600+1800))
	once := Normalize(in)
	twice := Normalize(once)
	if once != twice {
		t.Errorf("Normalize twice = %v, once = %v", twice, once)
	}
}

func TestParseISO(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-10T12:00:00+01:00", time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)},
		{"2024-03-10T12:00:00Z", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		{"2024-03-10T12:00:00.250Z", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		{"2024-03-10T12:00:00", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		{"2024-03-10 12:00:00", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		{"2024-03-10T12:00", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		{"2024-03-10T12:00-02:00", time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)},
		{"2024-03-10", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"2024-03-10T12:00:00+0200", time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"2024-03-10T12:00:00.5+0200", time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"2024-03-10T12:00:00+02", time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"2024-03-10T12:00-0130", time.Date(2024, 3, 10, 13, 30, 0, 0, time.UTC)},
		{"2024-03-10T12+02:00", time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"2024-03-10T12Z", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		{"2024-03-10T12", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseISO(tt.in)
			if err != nil {
				t.Fatalf("ParseISO(%q) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseISO(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseISO_Invalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2024-13-01", "10/03/2024"} {
		if _, err := ParseISO(in); !errors.Is(err, ErrInvalidTimestamp) {
			t.Errorf("ParseISO(%q) error = %v, want ErrInvalidTimestamp", in, err)
		}
	}
}

func TestDate(t *testing.T) {
	in := time.Date(2024, 3, 10, 23, 30, 0, 0, time.FixedZone("", -3600))
	want := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if got := Date(in); !got.Equal(want) {
		t.Errorf("Date(%v) = %v, want %v", in, got, want)
	}
}

func TestLocalNow(t *testing.T) {
	c := Fixed(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	if got, want := LocalNow(c, 7200), time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("LocalNow(+7200) = %v, want %v", got, want)
	}
	if got, want := LocalNow(c, -3600), time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("LocalNow(-3600) = %v, want %v", got, want)
	}
}
