package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabd1/Parallax/internal/config"
	"github.com/rafabd1/Parallax/internal/core"
	"github.com/rafabd1/Parallax/internal/httpmsg"
	"github.com/rafabd1/Parallax/internal/utils"
)

type namedMutation string

func (m namedMutation) Apply(req *httpmsg.Request) *httpmsg.Request { return req.Clone() }
func (m namedMutation) Describe() string                          { return string(m) }

func sample(attempt, status int, body string) core.ProbeSample {
	return core.ProbeSample{
		Attempt: attempt,
		Elapsed: 12 * time.Millisecond,
		Response: &httpmsg.Response{
			StatusCode: status,
			Status:     "status",
			Body:       []byte(body),
			Raw:        []byte("HTTP/1.1 raw"),
		},
	}
}

func campaignResult() *core.CampaignResult {
	base := httpmsg.NewRequest(httpmsg.Target{Host: "example.com", Port: 443, TLS: true}, []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	return &core.CampaignResult{
		ID:        "c-1",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Deadline:  time.Minute,
		Base:      base,
		Total:     4,
		Cancelled: 1,
		Results: []core.CombinationResult{
			{Index: 0, Description: "a", Combination: core.Combination{namedMutation("a")}, Request: base,
				Samples: []core.ProbeSample{sample(1, 200, "<title>Home</title>"), sample(2, 200, "<title>Home</title>")}},
			{Index: 1, Description: "b", Combination: core.Combination{namedMutation("b")}, Request: base,
				Samples: []core.ProbeSample{sample(1, 400, "bad")}},
			{Index: 3, Description: "a + b", Combination: core.Combination{namedMutation("a"), namedMutation("b")}, Request: base,
				Samples: []core.ProbeSample{sample(1, 200, "ok"), sample(3, 502, "gw")}},
		},
	}
}

func TestAnalyzeFlagsOutliers(t *testing.T) {
	a := NewProcessor(&utils.NoOpLogger{}).Analyze(campaignResult().Results)

	assert.Equal(t, 200, a.TypicalStatus)
	assert.Equal(t, map[int]int{200: 3, 400: 1, 502: 1}, a.StatusCounts)
	assert.Equal(t, map[int]bool{1: true, 3: true}, a.Deviating)
	assert.Equal(t, map[int]bool{3: true}, a.Inconsistent)
}

func TestModalStatusPrefersLowestOnTie(t *testing.T) {
	assert.Equal(t, 200, modalStatus(map[int]int{404: 2, 200: 2}))
	assert.Zero(t, modalStatus(map[int]int{}))
}

func TestBuildReport(t *testing.T) {
	r := NewReporter(config.DefaultConfig(), &utils.NoOpLogger{})

	rep := r.Build(campaignResult())

	assert.Equal(t, "c-1", rep.CampaignID)
	assert.Equal(t, "https://example.com:443", rep.Target)
	assert.Equal(t, int64(1500), rep.DurationMs)
	assert.Equal(t, 3, rep.Completed)
	assert.Empty(t, rep.BaseRequest)
	require.Len(t, rep.Results, 3)

	first := rep.Results[0]
	assert.Equal(t, []string{"a"}, first.Mutations)
	assert.False(t, first.Deviates)
	assert.Empty(t, first.Request)
	require.Len(t, first.Samples, 2)
	assert.Equal(t, "Home", first.Samples[0].Title)
	assert.Equal(t, utils.BodyDigest([]byte("<title>Home</title>")), first.Samples[0].Digest)
	assert.Equal(t, int64(12), first.Samples[0].ElapsedMs)
	assert.Empty(t, first.Samples[0].RawResponse)

	last := rep.Results[2]
	assert.Equal(t, []string{"a", "b"}, last.Mutations)
	assert.True(t, last.Deviates)
	assert.True(t, last.Inconsistent)
	assert.Equal(t, 3, last.Samples[1].Attempt)
}

func TestBuildReportWithRaw(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.IncludeRaw = true
	r := NewReporter(cfg, &utils.NoOpLogger{})

	rep := r.Build(campaignResult())

	assert.Contains(t, rep.BaseRequest, "Host: example.com")
	assert.Contains(t, rep.Results[0].Request, "GET / HTTP/1.1")
	assert.Equal(t, "HTTP/1.1 raw", rep.Results[0].Samples[0].RawResponse)
}

func TestWriteJSON(t *testing.T) {
	r := NewReporter(config.DefaultConfig(), &utils.NoOpLogger{})
	var buf bytes.Buffer

	require.NoError(t, r.Write(&buf, r.Build(campaignResult()), "json"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "c-1", decoded["campaign_id"])
	assert.EqualValues(t, 4, decoded["total_combinations"])
	results := decoded["results"].([]interface{})
	require.Len(t, results, 3)
	firstSample := results[0].(map[string]interface{})["samples"].([]interface{})[0].(map[string]interface{})
	assert.EqualValues(t, 200, firstSample["status_code"])
	assert.Equal(t, "Home", firstSample["title"])
}

func TestWriteText(t *testing.T) {
	r := NewReporter(config.DefaultConfig(), &utils.NoOpLogger{})
	var buf bytes.Buffer

	require.NoError(t, r.Write(&buf, r.Build(campaignResult()), "text"))

	out := buf.String()
	assert.Contains(t, out, "Campaign c-1 against https://example.com:443")
	assert.Contains(t, out, "4 total, 3 with responses, 1 cancelled. Typical status: 200")
	assert.Contains(t, out, "[4] a + b (deviates, inconsistent)")
	assert.Contains(t, out, `title="Home"`)
}

func TestGenerateReportToFile(t *testing.T) {
	r := NewReporter(config.DefaultConfig(), &utils.NoOpLogger{})
	path := filepath.Join(t.TempDir(), "nested", "report.json")

	require.NoError(t, r.GenerateReport(campaignResult(), path, "json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"campaign_id": "c-1"`)
}
