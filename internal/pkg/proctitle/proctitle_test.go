package proctitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		name string
		port int
		want string
	}{
		{"wsgateway", 2333, "wsgateway:2333"},
		{"wsgateway-eu-west", 8080, "wsgateway-:8080"},
		{" gw ", 0, "gw"},
		{"averyveryverylongname", 0, "averyveryverylo"},
	}
	for _, tc := range cases {
		got := Format(tc.name, tc.port)
		assert.Equal(t, tc.want, got)
		assert.LessOrEqual(t, len(got), MaxLen)
	}
}

func TestSetRejectsEmpty(t *testing.T) {
	assert.Error(t, Set("  "))
}
