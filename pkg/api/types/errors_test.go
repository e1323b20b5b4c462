package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getmockd/kbase/pkg/persistence"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusOK},
		{"not found", fmt.Errorf("load x: %w", persistence.ErrNotFound), StatusFileNotFound},
		{"invalid destination", persistence.ErrInvalidDestination, StatusInvalidPath},
		{"malformed", fmt.Errorf("decode: %w", persistence.ErrMalformed), StatusMalformedDocument},
		{"other", errors.New("disk full"), StatusIOError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromError(tt.err))
		})
	}
}
