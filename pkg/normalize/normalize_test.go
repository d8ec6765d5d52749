package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", Email(" A@B.com "))
	assert.Equal(t, "a@b.com", Email("a@b.com"))
	assert.Equal(t, "", Email("   "))
}

func TestPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 (555) 010-2030", "+15550102030"},
		{"555.010.2030", "5550102030"},
		{" +55 11 91234-5678 ", "+5511912345678"},
		{"55+11", "5511"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Phone(tt.in), "input %q", tt.in)
	}
}

func TestCPF(t *testing.T) {
	assert.Equal(t, "12345678909", CPF("123.456.789-09"))
	assert.Equal(t, "12345678909", CPF("12345678909"))
	assert.Equal(t, "", CPF("no digits"))
}
