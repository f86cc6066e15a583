// Package metrics exposes Prometheus counters for questionnaire sessions.
//
// A nil *Collector is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Side channels that can fail without stopping a session.
const (
	ChannelOutput   = "output"
	ChannelSpeech   = "speech"
	ChannelConsumer = "consumer"
)

type Collector struct {
	sessions prometheus.Counter
	answers  *prometheus.CounterVec
	skips    prometheus.Counter
	rejected *prometheus.CounterVec
	verdicts *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "donorbot_sessions_started_total",
			Help: "Questionnaire sessions opened for the first time",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "donorbot_answers_total",
			Help: "Answers recorded, by question id",
		}, []string{"question"}),
		skips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "donorbot_history_skips_total",
			Help: "Sessions that skipped the donation history questions",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "donorbot_submissions_rejected_total",
			Help: "Submissions rejected without a state change, by reason",
		}, []string{"reason"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "donorbot_verdicts_total",
			Help: "Final verdicts, by verdict and whether the age parsed",
		}, []string{"verdict", "age_parsed"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "donorbot_side_channel_failures_total",
			Help: "Failed deliveries to output, speech or consumers",
		}, []string{"channel"}),
	}

	for _, col := range []prometheus.Collector{c.sessions, c.answers, c.skips, c.rejected, c.verdicts, c.failures} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessions.Inc()
}

func (c *Collector) AnswerRecorded(questionID string) {
	if c == nil {
		return
	}
	c.answers.WithLabelValues(questionID).Inc()
}

func (c *Collector) HistorySkipped() {
	if c == nil {
		return
	}
	c.skips.Inc()
}

func (c *Collector) SubmissionRejected(reason string) {
	if c == nil {
		return
	}
	c.rejected.WithLabelValues(reason).Inc()
}

func (c *Collector) VerdictReached(verdict string, ageParsed bool) {
	if c == nil {
		return
	}
	c.VerdictCounter(verdict, ageParsed).Inc()
}

func (c *Collector) SideChannelFailed(channel string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(channel).Inc()
}

// RejectedCounter returns the rejection series for reason.
func (c *Collector) RejectedCounter(reason string) prometheus.Counter {
	return c.rejected.WithLabelValues(reason)
}

// FailureCounter returns the failure series for channel.
func (c *Collector) FailureCounter(channel string) prometheus.Counter {
	return c.failures.WithLabelValues(channel)
}

// VerdictCounter returns the verdict series.
func (c *Collector) VerdictCounter(verdict string, ageParsed bool) prometheus.Counter {
	parsed := "false"
	if ageParsed {
		parsed = "true"
	}
	return c.verdicts.WithLabelValues(verdict, parsed)
}
