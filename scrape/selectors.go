package scrape

// Selectors is the brittle external contract with the watch page's markup.
// Every DOM query the production page binding makes goes through this table
// so markup churn is a one-file fix.
type Selectors struct {
	// PanelSegments matches rendered transcript segment rows.
	PanelSegments string
	// SegmentText and SegmentTimestamp match within one segment row.
	SegmentText      string
	SegmentTimestamp string
	// ExpandTriggers open the description area; tried in order, first
	// match wins.
	ExpandTriggers []string
	// TranscriptTriggers open the transcript panel; tried in order.
	TranscriptTriggers []string
	// PanelClose closes the transcript panel again.
	PanelClose string
}

func DefaultSelectors() Selectors {
	return Selectors{
		PanelSegments:    "ytd-transcript-segment-renderer",
		SegmentText:      ".segment-text",
		SegmentTimestamp: ".segment-timestamp",
		ExpandTriggers: []string{
			"tp-yt-paper-button#expand",
			"#description-inline-expander #expand",
			"#description.ytd-watch-metadata",
		},
		TranscriptTriggers: []string{
			`ytd-video-description-transcript-section-renderer button`,
			`button[aria-label="Show transcript"]`,
			`#primary-button ytd-button-renderer button`,
		},
		PanelClose: `ytd-engagement-panel-title-header-renderer #visibility-button button`,
	}
}
