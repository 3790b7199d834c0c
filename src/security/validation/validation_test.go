package validation

import (
	"bytes"
	"io"
	"testing"
)

func TestSanitizeCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Textiles", "Textiles"},
		{"=SUM(A1:A2)", "'=SUM(A1:A2)"},
		{"+A1*2", "'+A1*2"},
		{"@cmd", "'@cmd"},
		{"-1.234,50", "-1.234,50"},
		{"-5", "-5"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeCell(tt.in); got != tt.want {
			t.Errorf("SanitizeCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripUnprintable(t *testing.T) {
	if got := StripUnprintable("te\x00_dhena\x07.csv"); got != "te_dhena.csv" {
		t.Errorf("StripUnprintable = %q", got)
	}
}

func TestValidateClientContentType(t *testing.T) {
	tests := []struct {
		ct      string
		wantErr bool
	}{
		{"text/csv", false},
		{"text/csv; charset=windows-1252", false},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", false},
		{"", false},
		{"image/png", true},
		{"application/pdf", true},
	}
	for _, tt := range tests {
		if err := ValidateClientContentType(tt.ct); (err != nil) != tt.wantErr {
			t.Errorf("ValidateClientContentType(%q) err = %v, wantErr %t", tt.ct, err, tt.wantErr)
		}
	}
}

func TestValidateFileContentByMagicBytes(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr bool
	}{
		{"csv", []byte("Viti,Vlera\n2024,1\n"), "text/plain", false},
		{"workbook", []byte("PK\x03\x04\x14\x00\x06\x00"), "application/zip", false},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), "image/png", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.data)
			got, err := ValidateFileContentByMagicBytes(r)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("got %q, %v; want %q (wantErr %t)", got, err, tt.want, tt.wantErr)
			}
			if pos, _ := r.Seek(0, io.SeekCurrent); pos != 0 {
				t.Errorf("reader left at offset %d", pos)
			}
		})
	}
	if _, err := ValidateFileContentByMagicBytes(nil); err == nil {
		t.Error("expected error for nil reader")
	}
}
