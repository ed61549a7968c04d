package documents

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionForwardOnly(t *testing.T) {
	forward := []Status{StatusReceived, StatusClassified, StatusParsed, StatusReady, StatusRouted, StatusPosted}
	for i, current := range forward {
		for j, next := range forward {
			err := Transition(current, next)
			if j < i {
				require.ErrorIs(t, err, ErrStatusRegression, "%s -> %s", current, next)
			} else {
				require.NoError(t, err, "%s -> %s", current, next)
			}
		}
	}
}

func TestTransitionNeedsReview(t *testing.T) {
	for _, current := range []Status{StatusReceived, StatusClassified, StatusParsed, StatusReady, StatusRouted, StatusPosted} {
		require.NoError(t, Transition(current, StatusNeedsReview), "entry from %s", current)
	}
	for _, next := range []Status{StatusReceived, StatusParsed, StatusPosted} {
		require.ErrorIs(t, Transition(StatusNeedsReview, next), ErrNeedsReview)
	}
	// Re-parking a parked document is a no-op, not an error.
	require.NoError(t, Transition(StatusNeedsReview, StatusNeedsReview))
}

func TestTransitionUnknownStatus(t *testing.T) {
	require.ErrorIs(t, Transition(Status("DRAFT"), StatusParsed), ErrUnknownStatus)
	require.ErrorIs(t, Transition(StatusParsed, Status("")), ErrUnknownStatus)
}

func TestAdvanceEqualRankIsNoop(t *testing.T) {
	doc := Document{Status: StatusParsed}
	require.NoError(t, doc.Advance(StatusParsed))
	require.Equal(t, StatusParsed, doc.Status)

	require.NoError(t, doc.Advance(StatusRouted))
	require.Equal(t, StatusRouted, doc.Status)

	require.ErrorIs(t, doc.Advance(StatusClassified), ErrStatusRegression)
	require.Equal(t, StatusRouted, doc.Status)
}

func TestStatusRank(t *testing.T) {
	require.Equal(t, 0, StatusReceived.Rank())
	require.Equal(t, 5, StatusPosted.Rank())
	require.Equal(t, -1, StatusNeedsReview.Rank())
	require.True(t, StatusNeedsReview.Valid())
	require.False(t, Status("bogus").Valid())
}
