package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripDiacritics(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Nguyễn Văn Đức", "Nguyen Van Duc"},
		{"Trần Thị Ánh", "Tran Thi Anh"},
		{"đường Lê Lợi", "duong Le Loi"},
		{"no accents", "no accents"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripDiacritics(tt.in), tt.in)
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "nguyenvana", Key("Nguyễn Văn A"))
	assert.Equal(t, "12hangbachanoi", Key("12 Hàng Bạc, Hà Nội"))
	assert.Equal(t, "", Key("!!!"))
}

func TestWords(t *testing.T) {
	assert.Equal(t, "nguyen van a", Words("  Nguyễn   Văn A. "))
	assert.Equal(t, "le loi", Words("Lê-Lợi"))
}

func TestPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0912345678", "0912345678"},
		{"+84 912-345-678", "0912345678"},
		{"84912345678", "0912345678"},
		{"0084912345678", "0912345678"},
		{"09 1234 5678", "0912345678"},
		{"84", "84"}, // too short to be a prefixed number
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Phone(tt.in), tt.in)
	}
}
