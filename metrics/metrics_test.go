package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.SessionStarted()
	c.AnswerRecorded("age")
	c.AnswerRecorded("age")
	c.HistorySkipped()
	c.SubmissionRejected("busy")
	c.VerdictReached("possibly_eligible", false)
	c.SideChannelFailed(ChannelSpeech)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.answers.WithLabelValues("age")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.skips))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RejectedCounter("busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.VerdictCounter("possibly_eligible", false)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.VerdictCounter("possibly_eligible", true)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FailureCounter(ChannelSpeech)))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.SessionStarted()
		c.AnswerRecorded("age")
		c.HistorySkipped()
		c.SubmissionRejected("empty")
		c.VerdictReached("not_eligible", true)
		c.SideChannelFailed(ChannelOutput)
	})
}
