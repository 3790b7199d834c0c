package csvfile

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

var defaultEncodings = []string{"utf-8", "latin-1", "iso-8859-1", "windows-1252"}

func TestParseUTF8WithBOM(t *testing.T) {
	data := "\ufeff Viti ,Muaji,Kategoria,Vlera (€)\n2024,1,Tekstile,\"1.500,00\"\n"
	table, err := NewParser(defaultEncodings, ',').Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if table.Encoding != "utf-8" {
		t.Errorf("Encoding = %q, want utf-8", table.Encoding)
	}
	wantHeaders := []string{"Viti", "Muaji", "Kategoria", "Vlera (€)"}
	if !reflect.DeepEqual(table.Headers, wantHeaders) {
		t.Errorf("Headers = %q, want %q", table.Headers, wantHeaders)
	}
	if len(table.Rows) != 1 || table.Rows[0][3] != "1.500,00" {
		t.Errorf("Rows = %q", table.Rows)
	}
}

// Windows-1252 puts € at 0x80, which ISO-8859-1 decodes to a C1 control
// character, so the latin candidates must be rejected.
func TestParseWindows1252Fallback(t *testing.T) {
	data := []byte("Viti,Kategoria,Vlera (\x80)\n2024,Pije alkoolike t\xEB forta,100\n")
	table, err := NewParser(defaultEncodings, ',').ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if table.Encoding != "windows-1252" {
		t.Errorf("Encoding = %q, want windows-1252", table.Encoding)
	}
	if table.Headers[2] != "Vlera (€)" {
		t.Errorf("Headers[2] = %q, want %q", table.Headers[2], "Vlera (€)")
	}
	if table.Rows[0][1] != "Pije alkoolike të forta" {
		t.Errorf("Rows[0][1] = %q", table.Rows[0][1])
	}
}

func TestParseLatin1(t *testing.T) {
	data := []byte("Kategoria,Vlera\nMakineri e r\xEBnd\xEB,5\n")
	table, err := NewParser(defaultEncodings, ',').ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if table.Encoding != "latin-1" {
		t.Errorf("Encoding = %q, want latin-1", table.Encoding)
	}
	if table.Rows[0][0] != "Makineri e rëndë" {
		t.Errorf("Rows[0][0] = %q", table.Rows[0][0])
	}
}

func TestParseRaggedRows(t *testing.T) {
	data := "a,b,c\n1,2\n1,2,3,4\n,,\n"
	table, err := NewParser(defaultEncodings, ',').Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := [][]string{{"1", "2", ""}, {"1", "2", "3"}, {"", "", ""}}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Errorf("Rows = %q, want %q", table.Rows, want)
	}
}

func TestParseDelimiter(t *testing.T) {
	data := "Viti;Vlera\n2024;1.500,00\n"
	table, err := NewParser([]string{"utf-8"}, ';').Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(table.Rows[0], []string{"2024", "1.500,00"}) {
		t.Errorf("Rows[0] = %q", table.Rows[0])
	}
}

func TestParseHeaderOnly(t *testing.T) {
	table, err := NewParser(defaultEncodings, 0).Parse(strings.NewReader("Viti,Vlera\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(table.Headers) != 2 || len(table.Rows) != 0 {
		t.Errorf("table = %+v", table)
	}
}

func TestParseAllCandidatesFail(t *testing.T) {
	encs := []string{"utf-8", "latin-1"}
	_, err := NewParser(encs, ',').Parse(strings.NewReader("  \n"))
	var attempts *AttemptsError
	if !errors.As(err, &attempts) {
		t.Fatalf("err = %v, want *AttemptsError", err)
	}
	if !reflect.DeepEqual(attempts.Tried(), encs) {
		t.Errorf("Tried = %q, want %q", attempts.Tried(), encs)
	}
	if !errors.Is(err, errEmptySource) {
		t.Errorf("err should wrap errEmptySource, got %v", err)
	}
}

func TestParseInvalidUTF8Only(t *testing.T) {
	_, err := NewParser([]string{"utf-8"}, ',').ParseBytes([]byte("a,b\n\xff,1\n"))
	if err == nil {
		t.Fatal("expected an error for invalid UTF-8 with no fallback")
	}
}

func TestParseUnknownEncodingSkipped(t *testing.T) {
	table, err := NewParser([]string{"ebcdic", "utf-8"}, ',').Parse(strings.NewReader("a\n1\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if table.Encoding != "utf-8" {
		t.Errorf("Encoding = %q, want utf-8", table.Encoding)
	}
}

func TestNoEncodingsConfigured(t *testing.T) {
	_, err := NewParser(nil, ',').Parse(strings.NewReader("a\n1\n"))
	var attempts *AttemptsError
	if !errors.As(err, &attempts) || len(attempts.Attempts) != 0 {
		t.Fatalf("err = %v, want empty AttemptsError", err)
	}
}
