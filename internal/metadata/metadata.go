package metadata

import (
	"github.com/barasher/go-exiftool"
	"github.com/sirupsen/logrus"
)

// Extractor reads file metadata through the exiftool binary.
type Extractor struct {
	log *logrus.Logger
}

// NewExtractor returns a new Extractor.
func NewExtractor(log *logrus.Logger) *Extractor {
	return &Extractor{log: log}
}

// Extract returns the metadata fields for the given file. A missing exiftool
// binary or an unreadable file degrades to an empty map, never an error that
// would disturb the session.
func (e *Extractor) Extract(path string) map[string]interface{} {
	et, err := exiftool.NewExiftool()
	if err != nil {
		e.log.Debugf("exiftool unavailable: %v", err)
		return map[string]interface{}{}
	}
	defer et.Close()

	metas := et.ExtractMetadata(path)
	if len(metas) == 0 {
		return map[string]interface{}{}
	}
	if metas[0].Err != nil {
		e.log.WithField("file", path).Debugf("Metadata extraction failed: %v", metas[0].Err)
		return map[string]interface{}{}
	}
	return metas[0].Fields
}
