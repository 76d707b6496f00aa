package encode

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	clienterrors "github.com/menta2k/talisay-client/pkg/errors"
)

func TestBytes(t *testing.T) {
	data := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	encoded := Bytes(data)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
	if string(decoded) != string(data) {
		t.Error("decoded bytes differ from input")
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.jpg")
	data := []byte("jpeg bytes here")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	encoded, err := File(path)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if encoded != Bytes(data) {
		t.Error("File and Bytes disagree on the same content")
	}
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing.jpg"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if !clienterrors.IsKind(err, clienterrors.KindEncoding) {
		t.Errorf("expected encoding error, got %v", err)
	}
}

