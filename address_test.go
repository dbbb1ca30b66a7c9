package stray

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNotifierAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    NotifierAddress
		wantErr bool
	}{
		{
			name:  "unique name with path",
			input: ":1.42/org/ayatana/NotificationItem/app",
			want:  NotifierAddress{Destination: ":1.42", Path: "/org/ayatana/NotificationItem/app"},
		},
		{
			name:  "well known name with path",
			input: "org.example.App/StatusNotifierItem",
			want:  NotifierAddress{Destination: "org.example.App", Path: "/StatusNotifierItem"},
		},
		{
			name:  "bare unique name defaults to StatusNotifierItem path",
			input: ":1.77",
			want:  NotifierAddress{Destination: ":1.77", Path: StatusNotifierItemPath},
		},
		{
			name:    "bare well known name is invalid",
			input:   "org.example.App",
			wantErr: true,
		},
		{
			name:    "empty string is invalid",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNotifierAddress(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNotifierAddressString(t *testing.T) {
	addr := NotifierAddress{Destination: ":1.42", Path: "/StatusNotifierItem"}
	require.Equal(t, ":1.42/StatusNotifierItem", addr.String())
}

func TestParseNotifierAddressRoundTrip(t *testing.T) {
	original := ":1.9/org/foo/Item"
	addr, err := ParseNotifierAddress(original)
	require.NoError(t, err)
	require.Equal(t, original, addr.String())
}
