package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/kilnbuild/kiln/internal/core/domain"
)

func TestInternedString(t *testing.T) {
	is1 := domain.NewInternedString("build")
	is2 := domain.NewInternedString("build")

	// Identical strings intern to the same handle and compare equal.
	if is1 != is2 {
		t.Errorf("expected equal interned strings, got %v and %v", is1, is2)
	}

	if is1.String() != "build" {
		t.Errorf("expected String() to return %q, got %q", "build", is1.String())
	}
}

func TestInternedString_ZeroValue(t *testing.T) {
	var zero domain.InternedString
	if zero.String() != "" {
		t.Errorf("expected zero value to stringify empty, got %q", zero.String())
	}
}

func TestInternedString_JSON(t *testing.T) {
	type record struct {
		Name domain.InternedString `json:"name"`
	}

	data, err := json.Marshal(record{Name: domain.NewInternedString("build")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"name":"build"}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var decoded record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Name != domain.NewInternedString("build") {
		t.Errorf("expected round-tripped name %q, got %q", "build", decoded.Name.String())
	}
}
