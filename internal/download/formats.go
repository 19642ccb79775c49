package download

import "github.com/masterdcs/mediagram/internal/engine"

// formatPlan returns the ordered format directives for a profile. The first
// entry is the preferred directive; later entries are the progressively
// looser alternates used when the server blocks an attempt.
func formatPlan(t MediaType, q Quality) []engine.Format {
	if t == MediaAudio {
		return []engine.Format{
			{Selector: "bestaudio/best", ExtractMP3: true},
			{Selector: "bestaudio[ext=m4a]/bestaudio/best"},
			{Selector: "bestaudio/best"},
		}
	}

	switch q {
	case QualityFast:
		return []engine.Format{
			{Selector: "best[height<=480]/best[height<=360]/worst"},
			{Selector: "best[height<=360]/worst"},
			{Selector: "worst"},
		}
	case QualityHD:
		return []engine.Format{
			{Selector: "best[height<=1080]/best[height<=720]/best"},
			{Selector: "best[height<=720]/best"},
			{Selector: "best[height<=480]/best"},
		}
	default: // best
		return []engine.Format{
			{Selector: "best[height<=720]/best[height<=480]/best"},
			{Selector: "best[height<=480]/best"},
			{Selector: "worst/best"},
		}
	}
}
