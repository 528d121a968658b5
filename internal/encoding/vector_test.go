package encoding

import (
	"math"
	"testing"
)

func TestEncodeDecodeVectorRoundTrip(t *testing.T) {
	want := []float32{0.1, -0.2, 3.5, 0}
	blob, err := EncodeVector(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeVector(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEncodeVectorRejectsNil(t *testing.T) {
	if _, err := EncodeVector(nil); err != ErrInvalidVector {
		t.Fatalf("expected ErrInvalidVector, got %v", err)
	}
}

func TestDecodeVectorRejectsTruncatedBlob(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2}); err != ErrInvalidVector {
		t.Fatalf("expected ErrInvalidVector, got %v", err)
	}
}

func TestDecodeVectorEmptyLength(t *testing.T) {
	blob, err := EncodeVector([]float32{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeVector(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty vector, got %v", got)
	}
}

func TestEncodeDecodeMetadataRoundTrip(t *testing.T) {
	want := map[string]string{"entities": `["A","B"]`, "owner": "alice"}
	encoded, err := EncodeMetadata(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeMetadata(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if got["entities"] != want["entities"] || got["owner"] != want["owner"] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEncodeMetadataNilReturnsEmptyString(t *testing.T) {
	got, err := EncodeMetadata(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("expected empty string for nil metadata, got %q", got)
	}
}

func TestDecodeMetadataEmptyStringReturnsNil(t *testing.T) {
	got, err := DecodeMetadata("")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil map, got %v", got)
	}
}

func TestValidateVectorRejectsEmpty(t *testing.T) {
	if err := ValidateVector(nil); err != ErrInvalidVector {
		t.Fatalf("expected ErrInvalidVector, got %v", err)
	}
}

func TestValidateVectorRejectsNaNAndInf(t *testing.T) {
	if err := ValidateVector([]float32{1, float32(math.NaN())}); err != ErrInvalidVector {
		t.Fatalf("expected ErrInvalidVector for NaN, got %v", err)
	}
	if err := ValidateVector([]float32{float32(math.Inf(1))}); err != ErrInvalidVector {
		t.Fatalf("expected ErrInvalidVector for +Inf, got %v", err)
	}
}

func TestValidateVectorAcceptsNormalValues(t *testing.T) {
	if err := ValidateVector([]float32{0.1, -0.2, 3}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
