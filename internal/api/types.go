package api

import (
	"time"

	"github.com/ratewatch/ratewatch/internal/panel"
)

// ChannelResponse is the JSON representation of one channel's statistics.
type ChannelResponse struct {
	Channel  string  `json:"channel"`
	Messages int     `json:"messages"`
	MeanHz   float64 `json:"mean_hz"`
	MedianHz float64 `json:"median_hz"`
	StdDevHz float64 `json:"stddev_hz"`
	MinHz    float64 `json:"min_hz"`
	MaxHz    float64 `json:"max_hz"`
	Samples  int     `json:"samples"`
	Filtered int     `json:"filtered"`
	Outliers int     `json:"outliers"`
}

// SummariesResponse is the full channel snapshot, shared by GET
// /api/v1/channels and the WebSocket broadcast.
type SummariesResponse struct {
	Channels    []ChannelResponse `json:"channels"`
	GeneratedAt string            `json:"generated_at"`
}

// HealthResponse is the GET /api/v1/health body.
type HealthResponse struct {
	Status        string `json:"status"`
	Channels      int    `json:"channels"`
	Messages      int    `json:"messages"`
	FeedConnected bool   `json:"feed_connected"`
}

// SubscriptionsResponse is the GET /api/v1/subscriptions body.
type SubscriptionsResponse struct {
	Channels []string `json:"channels"`
}

// subscribeRequest is the POST /api/v1/subscriptions body.
type subscribeRequest struct {
	Channels []string `json:"channels"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SummarySource yields channel summaries. *panel.Panel satisfies it.
type SummarySource interface {
	Summaries() []panel.ChannelSummary
}

// toChannelResponse maps a panel summary to its JSON representation.
func toChannelResponse(cs panel.ChannelSummary) ChannelResponse {
	s := cs.Summary
	return ChannelResponse{
		Channel:  cs.Channel,
		Messages: s.SampleCount,
		MeanHz:   s.Mean,
		MedianHz: s.Median,
		StdDevHz: s.StdDev,
		MinHz:    s.Min,
		MaxHz:    s.Max,
		Samples:  len(s.Raw),
		Filtered: len(s.Filtered),
		Outliers: s.Outliers,
	}
}

// BuildSummaries assembles the shared snapshot payload.
func BuildSummaries(src SummarySource) SummariesResponse {
	rows := src.Summaries()
	out := make([]ChannelResponse, 0, len(rows))
	for _, cs := range rows {
		out = append(out, toChannelResponse(cs))
	}
	return SummariesResponse{
		Channels:    out,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
