package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  Pune warehouse ", want: "Pune warehouse"},
		{name: "script removed", in: "Mumbai<script>alert(1)</script>", want: "Mumbai"},
		{name: "tags stripped", in: "<b>Delhi</b> office", want: "Delhi office"},
		{name: "ampersand kept", in: "Smith & Co", want: "Smith & Co"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestList(t *testing.T) {
	assert.Equal(t, []string{"X", "Y"}, List([]string{" X ", "", "<i></i>", "Y"}))
	assert.Empty(t, List(nil))
}
