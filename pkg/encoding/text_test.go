package encoding

import "testing"

func TestNewDecoder(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"", false},
		{"utf-8", false},
		{"UTF8", false},
		{"gbk", false},
		{"GB18030", false},
		{"euc_kr", false},
		{"latin-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDecoder(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}

func TestDecode_GBK(t *testing.T) {
	dec, err := NewDecoder("gbk")
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}

	// "模型" in GBK.
	raw := string([]byte{0xC4, 0xA3, 0xD0, 0xCD})
	if got := dec.Decode(raw); got != "模型" {
		t.Errorf("Decode() = %q, want %q", got, "模型")
	}
}

func TestDecode_EUCKR(t *testing.T) {
	dec, _ := NewDecoder("euc-kr")
	// "한" in EUC-KR.
	if got := dec.Decode(string([]byte{0xC7, 0xD1})); got != "한" {
		t.Errorf("Decode() = %q, want %q", got, "한")
	}
}

func TestDecode_ASCIIPassThrough(t *testing.T) {
	dec, _ := NewDecoder("gbk")
	uuid := "3f1c2a9e-0b7d-4c1e-9a55-7d2b8e6f4a10"
	if got := dec.Decode(uuid); got != uuid {
		t.Errorf("Decode() = %q, want %q", got, uuid)
	}
}

func TestTrimNull(t *testing.T) {
	if got := TrimNull("abc\x00\x00junk"); got != "abc" {
		t.Errorf("TrimNull() = %q, want %q", got, "abc")
	}
	dec, _ := NewDecoder("")
	if got := dec.Decode("name\x00"); got != "name" {
		t.Errorf("utf-8 Decode() = %q, want %q", got, "name")
	}
}
