package report

import (
	"sort"

	"github.com/rafabd1/Parallax/internal/core"
	"github.com/rafabd1/Parallax/internal/httpmsg"
	"github.com/rafabd1/Parallax/internal/utils"
)

// Fingerprint summarizes a response so samples can be compared cheaply.
type Fingerprint struct {
	StatusCode int    `json:"status_code"`
	Length     int    `json:"body_length"`
	Title      string `json:"title,omitempty"`
	Digest     string `json:"body_digest"`
}

// FingerprintOf computes the fingerprint of resp.
func FingerprintOf(resp *httpmsg.Response) Fingerprint {
	if resp == nil {
		return Fingerprint{}
	}
	return Fingerprint{
		StatusCode: resp.StatusCode,
		Length:     len(resp.Body),
		Title:      utils.ExtractTitle(resp.Body),
		Digest:     utils.BodyDigest(resp.Body),
	}
}

// Analysis flags the combinations whose answers stand out in a campaign.
type Analysis struct {
	// TypicalStatus is the most frequent status code across all samples.
	TypicalStatus int
	StatusCounts  map[int]int
	// Deviating holds result indexes with at least one sample off TypicalStatus.
	Deviating map[int]bool
	// Inconsistent holds result indexes whose samples disagree on the status code.
	Inconsistent map[int]bool
}

// Processor compares the samples of a campaign.
type Processor struct {
	logger utils.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(logger utils.Logger) *Processor {
	return &Processor{logger: logger}
}

// Analyze computes the Analysis of results.
func (p *Processor) Analyze(results []core.CombinationResult) Analysis {
	a := Analysis{
		StatusCounts: make(map[int]int),
		Deviating:    make(map[int]bool),
		Inconsistent: make(map[int]bool),
	}
	for _, r := range results {
		for _, s := range r.Samples {
			a.StatusCounts[s.Response.StatusCode]++
		}
	}
	a.TypicalStatus = modalStatus(a.StatusCounts)

	for _, r := range results {
		first := r.Samples[0].Response.StatusCode
		for _, s := range r.Samples {
			status := s.Response.StatusCode
			if status != a.TypicalStatus {
				a.Deviating[r.Index] = true
			}
			if status != first {
				a.Inconsistent[r.Index] = true
			}
		}
		if a.Deviating[r.Index] || a.Inconsistent[r.Index] {
			p.logger.Debugf("[Processor] %s stands out (deviating: %t, inconsistent: %t).", r.Description, a.Deviating[r.Index], a.Inconsistent[r.Index])
		}
	}
	return a
}

// modalStatus picks the most frequent status, the lowest code on ties.
func modalStatus(counts map[int]int) int {
	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	best, bestCount := 0, 0
	for _, code := range codes {
		if counts[code] > bestCount {
			best, bestCount = code, counts[code]
		}
	}
	return best
}
