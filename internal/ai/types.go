package ai

import "errors"

// MaxImages is the number of screenshots accepted by one extraction.
const MaxImages = 5

var (
	ErrNoImages         = errors.New("at least one image is required")
	ErrTooManyImages    = errors.New("too many images")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrInvalidResponse  = errors.New("invalid model response")
	ErrNothingExtracted = errors.New("no member data could be extracted")
)

// supportedImageTypes lists the attachment content types accepted for extraction.
var supportedImageTypes = map[string]struct{}{ //nolint:gochecknoglobals // lookup table
	"image/png":  {},
	"image/jpeg": {},
	"image/jpg":  {},
	"image/webp": {},
	"image/gif":  {},
}

// Image is one screenshot to analyze.
type Image struct {
	URL         string
	Filename    string
	ContentType string
}

// ActivityEntry is one member row read from a screenshot.
type ActivityEntry struct {
	MemberName         string `json:"member_name"`
	WeekActivityPoints int    `json:"week_activity_points"`
}

// ActivityResult is the merged outcome of an extraction.
type ActivityResult struct {
	Entries []ActivityEntry
	// Images is the number of screenshots that were analyzed successfully.
	Images int
	// Failed lists the filenames whose analysis failed.
	Failed []string
}
