package remote

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsQuotaErr(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("Quota exceeded for this project"), true},
		{errors.New("rpc error: code = ResourceExhausted desc = resource-exhausted"), true},
		{errors.New("ERR max requests limit exceeded"), true},
		{errors.New("OOM command not allowed when used memory > 'maxmemory'"), true},
		{errors.New("you have reached your usage limits"), true},
		{errors.New("connection refused"), false},
		{errors.New("context deadline exceeded"), false},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsQuotaErr(tt.err), "%v", tt.err)
	}
}
