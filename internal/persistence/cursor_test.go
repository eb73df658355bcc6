package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token := EncodeCursor(&Cursor{After: 25, LastID: "6f1c2f4e-run"})
	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.Equal(t, &Cursor{After: 25, LastID: "6f1c2f4e-run"}, decoded)

	require.Empty(t, EncodeCursor(nil))
	decoded, err = DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"%%%", EncodeCursor(&Cursor{After: 0, LastID: "x"}), "MTA"} {
		_, err := DecodeCursor(token)
		require.ErrorIs(t, err, ErrInvalidCursor, token)
	}
}
