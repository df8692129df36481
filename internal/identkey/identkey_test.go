package identkey

import (
	"errors"
	"strings"
	"testing"

	"github.com/sakif/family-catalog/internal/apperror"
)

var sampleEmails = []string{
	"a@x.com",
	"A@x.com",
	"b@y.com",
	"first.last+tag@example.co.uk",
	"üser@exämple.de",
	"x@y",
	"a@x.co",
	"a@x.com ",
	"very.long.local.part.that.exceeds.the.usual.length@subdomain.example.museum",
	"quote\"d@example.com",
	"slash/name@example.com",
}

func TestRoundTrip(t *testing.T) {
	for _, email := range sampleEmails {
		t.Run(email, func(t *testing.T) {
			got, err := Decode(Encode(email))
			if err != nil {
				t.Fatalf("Decode(Encode(%q)) error = %v", email, err)
			}
			if got != email {
				t.Errorf("Decode(Encode(%q)) = %q", email, got)
			}
		})
	}
}

func TestEncodeIsInjective(t *testing.T) {
	seen := make(map[string]string, len(sampleEmails))
	for _, email := range sampleEmails {
		key := Encode(email)
		if prev, ok := seen[key]; ok {
			t.Fatalf("Encode(%q) == Encode(%q) == %q", email, prev, key)
		}
		seen[key] = email
	}
}

func TestEncodeIsKeySafe(t *testing.T) {
	for _, email := range sampleEmails {
		key := Encode(email)
		if strings.ContainsAny(key, "/.#$[]=+ ") {
			t.Errorf("Encode(%q) = %q contains a reserved character", email, key)
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	if Encode("a@x.com") != Encode("a@x.com") {
		t.Fatal("Encode is not deterministic")
	}
	if got, want := Encode("a@x.com"), "YUB4LmNvbQ"; got != want {
		t.Errorf("Encode(a@x.com) = %q, want %q", got, want)
	}
}

func TestDecodeRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "not base64!", "YUB4LmNvbQ=="} {
		_, err := Decode(key)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Decode(%q) error = %v, want ErrValidation", key, err)
		}
	}
}

func TestDecodeRejectsNonCanonicalKeys(t *testing.T) {
	// "YQ" is the canonical key for "a"; these differ only in trailing bits.
	for _, key := range []string{"YR", "YUB4LmNvbR"} {
		_, err := Decode(key)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Decode(%q) error = %v, want ErrValidation", key, err)
		}
	}
	if got, err := Decode("YQ"); err != nil || got != "a" {
		t.Errorf("Decode(YQ) = %q, %v, want %q", got, err, "a")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  A@x.com\n"); got != "A@x.com" {
		t.Errorf("Normalize() = %q, want %q", got, "A@x.com")
	}
}
