package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rafabd1/Parallax/internal/config"
	"github.com/rafabd1/Parallax/internal/core"
	"github.com/rafabd1/Parallax/internal/utils"
)

// SampleRecord is one successful attempt in a report.
type SampleRecord struct {
	Attempt   int   `json:"attempt"`
	ElapsedMs int64 `json:"elapsed_ms"`
	Fingerprint
	Status      string `json:"status"`
	RawResponse string `json:"raw_response,omitempty"`
}

// ResultRecord is one combination in a report.
type ResultRecord struct {
	Index        int            `json:"index"`
	Description  string         `json:"description"`
	Mutations    []string       `json:"mutations"`
	Deviates     bool           `json:"deviates"`
	Inconsistent bool           `json:"inconsistent"`
	Request      string         `json:"request,omitempty"`
	Samples      []SampleRecord `json:"samples"`
}

// Report is the serialized outcome of a campaign.
type Report struct {
	CampaignID        string         `json:"campaign_id"`
	Target            string         `json:"target"`
	StartedAt         time.Time      `json:"started_at"`
	DurationMs        int64          `json:"duration_ms"`
	DeadlineMs        int64          `json:"deadline_ms"`
	TotalCombinations int            `json:"total_combinations"`
	Completed         int            `json:"completed"`
	Cancelled         int            `json:"cancelled"`
	TypicalStatus     int            `json:"typical_status"`
	StatusCounts      map[int]int    `json:"status_counts"`
	BaseRequest       string         `json:"base_request,omitempty"`
	Results           []ResultRecord `json:"results"`
}

// Reporter turns campaign results into JSON or text reports.
type Reporter struct {
	includeRaw bool
	processor  *Processor
	logger     utils.Logger
}

// NewReporter creates a new Reporter. cfg.IncludeRaw adds raw requests and
// responses to the report.
func NewReporter(cfg *config.Config, logger utils.Logger) *Reporter {
	return &Reporter{
		includeRaw: cfg.IncludeRaw,
		processor:  NewProcessor(logger),
		logger:     logger,
	}
}

// Build converts res into a Report.
func (r *Reporter) Build(res *core.CampaignResult) *Report {
	analysis := r.processor.Analyze(res.Results)
	rep := &Report{
		CampaignID:        res.ID,
		StartedAt:         res.StartedAt,
		DurationMs:        res.Duration.Milliseconds(),
		DeadlineMs:        res.Deadline.Milliseconds(),
		TotalCombinations: res.Total,
		Completed:         len(res.Results),
		Cancelled:         res.Cancelled,
		TypicalStatus:     analysis.TypicalStatus,
		StatusCounts:      analysis.StatusCounts,
		Results:           make([]ResultRecord, 0, len(res.Results)),
	}
	if res.Base != nil {
		rep.Target = res.Base.Target.String()
		if r.includeRaw {
			rep.BaseRequest = string(res.Base.Raw)
		}
	}

	for _, cr := range res.Results {
		rec := ResultRecord{
			Index:        cr.Index,
			Description:  cr.Description,
			Mutations:    make([]string, len(cr.Combination)),
			Deviates:     analysis.Deviating[cr.Index],
			Inconsistent: analysis.Inconsistent[cr.Index],
			Samples:      make([]SampleRecord, 0, len(cr.Samples)),
		}
		for i, m := range cr.Combination {
			rec.Mutations[i] = m.Describe()
		}
		if r.includeRaw && cr.Request != nil {
			rec.Request = string(cr.Request.Raw)
		}
		for _, s := range cr.Samples {
			sr := SampleRecord{
				Attempt:     s.Attempt,
				ElapsedMs:   s.ElapsedMillis(),
				Fingerprint: FingerprintOf(s.Response),
				Status:      s.Response.Status,
			}
			if r.includeRaw {
				sr.RawResponse = string(s.Response.Raw)
			}
			rec.Samples = append(rec.Samples, sr)
		}
		rep.Results = append(rep.Results, rec)
	}
	return rep
}

// Write renders rep to w as "json" or "text".
func (r *Reporter) Write(w io.Writer, rep *Report, format string) error {
	if strings.EqualFold(format, "json") {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rep)
	}
	return writeText(w, rep)
}

// GenerateReport writes the report for res to outputPath, or stdout when it is empty.
func (r *Reporter) GenerateReport(res *core.CampaignResult, outputPath string, format string) error {
	outputWriter := io.Writer(os.Stdout)
	if outputPath != "" {
		if err := utils.EnsureFilepathExists(outputPath); err != nil {
			return err
		}
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		outputWriter = f
	}

	rep := r.Build(res)
	if err := r.Write(outputWriter, rep, format); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if outputPath != "" {
		r.logger.Infof("Report written to %s (%d result(s)).", outputPath, len(rep.Results))
	}
	return nil
}

func writeText(w io.Writer, rep *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Campaign %s against %s\n", rep.CampaignID, rep.Target)
	fmt.Fprintf(&b, "Started %s, took %s (deadline %s)\n", rep.StartedAt.Format(time.RFC3339),
		time.Duration(rep.DurationMs)*time.Millisecond, time.Duration(rep.DeadlineMs)*time.Millisecond)
	fmt.Fprintf(&b, "Combinations: %d total, %d with responses, %d cancelled. Typical status: %d\n",
		rep.TotalCombinations, rep.Completed, rep.Cancelled, rep.TypicalStatus)

	for _, res := range rep.Results {
		var marks []string
		if res.Deviates {
			marks = append(marks, "deviates")
		}
		if res.Inconsistent {
			marks = append(marks, "inconsistent")
		}
		fmt.Fprintf(&b, "---\n[%d] %s", res.Index+1, res.Description)
		if len(marks) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(marks, ", "))
		}
		b.WriteString("\n")
		for _, s := range res.Samples {
			fmt.Fprintf(&b, "  #%d %d %dB %dms digest=%s", s.Attempt, s.StatusCode, s.Length, s.ElapsedMs, s.Digest)
			if s.Title != "" {
				fmt.Fprintf(&b, " title=%q", s.Title)
			}
			b.WriteString("\n")
		}
		if res.Request != "" {
			fmt.Fprintf(&b, "  request:\n%s\n", indent(res.Request))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\r\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + strings.TrimRight(l, "\r")
	}
	return strings.Join(lines, "\n")
}
