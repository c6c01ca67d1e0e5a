// Package artifact defines the aggregate data contract of a collection
// run. Downstream analysis modules read only this shape; every optional
// section carries its own success flag so consumers can degrade
// gracefully.
package artifact

import (
	"time"

	"github.com/zaircost/garimpo/capture"
	"github.com/zaircost/garimpo/provider"
	"github.com/zaircost/garimpo/research"
	"github.com/zaircost/garimpo/viral"
)

// WebSection aggregates the web fan-out.
type WebSection struct {
	Success bool                    `json:"success"`
	Error   string                  `json:"error,omitempty"`
	Results []provider.SearchResult `json:"results"`
}

// PlatformBucket groups one platform's posts.
type PlatformBucket struct {
	Posts []viral.Post `json:"posts"`
}

// SocialSection aggregates the social fan-out, normalized per platform at
// ingress.
type SocialSection struct {
	Success   bool                      `json:"success"`
	Error     string                    `json:"error,omitempty"`
	Platforms map[string]PlatformBucket `json:"platforms"`
}

// TrendsSection aggregates trend topics.
type TrendsSection struct {
	Success bool                    `json:"success"`
	Error   string                  `json:"error,omitempty"`
	Topics  []provider.SearchResult `json:"topics"`
}

// ViralSection carries the identified top performers and their visual
// evidence.
type ViralSection struct {
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
	Posts         []viral.Post  `json:"posts"`
	Images        []viral.Image `json:"images,omitempty"`
	TotalFound    int           `json:"total_found"`
	AvgEngagement float64       `json:"avg_engagement"`
}

// SourceError is one soft failure surfaced in the report's errors section.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Stats holds the run counters.
type Stats struct {
	TotalSources       int                `json:"total_sources"`
	UniqueURLs         int                `json:"unique_urls"`
	TotalContentLength int                `json:"total_content_length"`
	CollectionTime     float64            `json:"collection_time"`
	SourcesByType      map[string]int     `json:"sources_by_type"`
	ScreenshotCount    int                `json:"screenshot_count"`
	APICalls           map[string]int     `json:"api_calls,omitempty"`
	APIRotations       map[string]int     `json:"api_rotations,omitempty"`
	SuccessRate        map[string]float64 `json:"success_rate,omitempty"`
}

// MassiveData is the aggregate artifact of one collection run. It is
// created and mutated only by the orchestrator and handed read-only to
// the deep-study phase and the reporters.
type MassiveData struct {
	SessionID         string           `json:"session_id"`
	Query             string           `json:"query"`
	Context           research.Context `json:"context"`
	CollectionStarted time.Time        `json:"collection_started"`
	CollectionEnded   time.Time        `json:"collection_ended"`

	WebSearchData       WebSection           `json:"web_search_data"`
	SocialMediaData     SocialSection        `json:"social_media_data"`
	TrendsData          TrendsSection        `json:"trends_data"`
	ViralContent        ViralSection         `json:"viral_content"`
	ScreenshotsCaptured []capture.Screenshot `json:"screenshots_captured"`
	DownloadedImages    []capture.LocalImage `json:"downloaded_images,omitempty"`
	ExtractedContent    []research.Page      `json:"extracted_content"`
	Research            *research.Report     `json:"research,omitempty"`
	ExpertKnowledge     *ExpertKnowledge     `json:"expert_knowledge,omitempty"`

	Statistics      Stats         `json:"statistics"`
	Errors          []SourceError `json:"errors,omitempty"`
	EmergencyMode   bool          `json:"emergency_mode,omitempty"`
	EmergencyReason string        `json:"emergency_reason,omitempty"`
}

// StudyPhase is one subsection of the deep-study pass.
type StudyPhase struct {
	Name      string `json:"name"`
	Content   string `json:"content,omitempty"`
	Complete  bool   `json:"complete"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// ExpertKnowledge is the deep-study output: seven analytical subsections
// over the aggregated data.
type ExpertKnowledge struct {
	Structural  StudyPhase `json:"structural"`
	Market      StudyPhase `json:"market"`
	Competitive StudyPhase `json:"competitive"`
	Behavioral  StudyPhase `json:"behavioral"`
	Trends      StudyPhase `json:"trends"`
	Predictive  StudyPhase `json:"predictive"`
	Strategic   StudyPhase `json:"strategic"`
}

// Phases lists the subsections in execution order.
func (e *ExpertKnowledge) Phases() []*StudyPhase {
	return []*StudyPhase{
		&e.Structural, &e.Market, &e.Competitive, &e.Behavioral,
		&e.Trends, &e.Predictive, &e.Strategic,
	}
}
