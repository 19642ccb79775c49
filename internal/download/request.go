package download

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

type Quality string

const (
	QualityFast Quality = "fast"
	QualityBest Quality = "best"
	QualityHD   Quality = "hd"
)

// Request is an accepted download request. Immutable once constructed.
type Request struct {
	ChatID  string
	URL     string
	Type    MediaType
	Quality Quality
}

// NewToken builds the uniqueness token embedded in output filenames so
// concurrent requests sharing one directory cannot collide. Derived once per
// attempt set; cleanup globs use it to find partial artifacts from any
// attempt.
func NewToken() string {
	disambiguator := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("dl_%d_%s", time.Now().Unix(), disambiguator)
}
