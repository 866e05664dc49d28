package annotate

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordPredicates(t *testing.T) {
	t.Parallel()

	require.True(t, Record{DOI: "10.1/abc"}.HasDOI())
	require.False(t, Record{}.HasDOI())
	require.True(t, Record{Abstract: " "}.Annotatable())
	require.False(t, Record{DOI: "10.1/abc"}.Annotatable())
}

func TestTaskNextKeepsRecord(t *testing.T) {
	t.Parallel()

	task := NewTask(Record{DOI: "x", Abstract: "fever"})
	next := task.Next().Next()
	require.Equal(t, task.Record, next.Record)
	require.Equal(t, 2, next.Attempt)
	require.Zero(t, task.Attempt)
}

func TestResponseOKAndOutcomes(t *testing.T) {
	t.Parallel()

	require.True(t, Response{StatusCode: http.StatusOK}.OK())
	require.False(t, Response{StatusCode: http.StatusServiceUnavailable}.OK())

	for _, o := range []Outcome{OutcomeWritten, OutcomeFiltered, OutcomeDropped} {
		require.True(t, o.Terminal(), o)
	}
	require.False(t, OutcomeRetried.Terminal())
}

func TestAcceptAll(t *testing.T) {
	t.Parallel()

	ok, err := AcceptAll.Accept("not even json")
	require.NoError(t, err)
	require.True(t, ok)
}
