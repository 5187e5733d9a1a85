package utils

import (
	"path/filepath"
	"testing"
)

func TestSourceDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://www.infineon.com/dgdl/Infineon-IPW60R070CFD7.pdf", "infineon.com", true},
		{"//mm.digikey.com/Volume0/opasdata/d220001/medias/docus/1/x.pdf", "digikey.com", true},
		{"www.st.com/resource/en/datasheet/stf13n60m2.pdf", "st.com", true},
		{"https://datasheet.lcsc.com.cn/lcsc/a.pdf", "lcsc.com.cn", true},
		{"", "", false},
		{"not-a-host", "", false},
	}
	for _, tc := range tests {
		got, ok := SourceDomain(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("SourceDomain(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("STMicroelectronics", 8); got != "STMic..." {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("ROHM", 8); got != "ROHM" {
		t.Fatalf("got %q", got)
	}
}

func TestDBLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.sqlite")
	l, err := NewDBLock(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Lock(); err != nil {
		t.Fatal(err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatal(err)
	}
}
