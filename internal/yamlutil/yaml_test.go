package yamlutil_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/manal-catering/invoicer/internal/yamlutil"
)

type testConfig struct {
	Name    string `yaml:"name"`
	Count   int    `yaml:"count"`
	Enabled bool   `yaml:"enabled"`
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict - Parses YAML, rejecting unknown fields
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
		check   func(t *testing.T, v any)
	}{
		{
			name: "valid YAML",
			data: []byte("name: test\ncount: 42\nenabled: true"),
			dest: &testConfig{},
			check: func(t *testing.T, v any) {
				cfg := v.(*testConfig)
				if cfg.Name != "test" {
					t.Errorf("Name = %q, want %q", cfg.Name, "test")
				}
				if cfg.Count != 42 {
					t.Errorf("Count = %d, want %d", cfg.Count, 42)
				}
				if !cfg.Enabled {
					t.Error("Enabled = false, want true")
				}
			},
		},
		{
			name:    "nil data",
			data:    nil,
			dest:    &testConfig{},
			wantErr: yamlutil.ErrNilData,
		},
		{
			name:    "empty data",
			data:    []byte{},
			dest:    &testConfig{},
			wantErr: yamlutil.ErrNilData,
		},
		{
			name:    "nil destination",
			data:    []byte("name: test"),
			dest:    nil,
			wantErr: yamlutil.ErrNilDestination,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.UnmarshalStrict(tt.data, tt.dest)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UnmarshalStrict() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalStrict() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, tt.dest)
			}
		})
	}
}

func TestUnmarshalStrictUnknownField(t *testing.T) {
	t.Parallel()

	var cfg testConfig
	err := yamlutil.UnmarshalStrict([]byte("name: test\nbogus: 1"), &cfg)
	if err == nil {
		t.Fatal("UnmarshalStrict() with unknown field succeeded, want error")
	}
}

func TestUnmarshalStrictSyntaxError(t *testing.T) {
	t.Parallel()

	var cfg testConfig
	err := yamlutil.UnmarshalStrict([]byte("name: [unclosed"), &cfg)
	if err == nil {
		t.Fatal("UnmarshalStrict() with invalid YAML succeeded, want error")
	}
}

func TestUnmarshalStrictInputTooLarge(t *testing.T) {
	t.Parallel()

	var cfg testConfig
	data := []byte("name: " + strings.Repeat("a", yamlutil.MaxInputSize))
	err := yamlutil.UnmarshalStrict(data, &cfg)
	if !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Fatalf("UnmarshalStrict() error = %v, want %v", err, yamlutil.ErrInputTooLarge)
	}
}
