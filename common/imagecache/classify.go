package imagecache

import "github.com/kitgore/lyrictype-sub002/common/models"

// recordState is the shape classification of a stored record. It drives
// the retrieval state machine: anything but stateCurrent funnels into
// the same reprocess-from-source remediation.
type recordState int

const (
	stateAbsent recordState = iota
	stateLegacyBinary
	stateLegacyMislabeled
	stateCurrent
)

func (s recordState) String() string {
	switch s {
	case stateAbsent:
		return "absent"
	case stateLegacyBinary:
		return "legacy_binary"
	case stateLegacyMislabeled:
		return "legacy_mislabeled"
	case stateCurrent:
		return "current"
	default:
		return "unknown"
	}
}

// classify maps a store lookup to a record state. A record is current
// only when its version tag matches the latest codec AND it carries
// positive dimensions; payload health is not judged here, it surfaces
// later as a decode failure. Legacy shapes are recognized by which
// payload field is populated: the old 1-bit format wrote
// binaryImageData, the mislabeled class has grayscale-shaped data under
// a stale or missing version tag.
func classify(rec *models.ImageRecord, found bool) recordState {
	if !found || rec == nil {
		return stateAbsent
	}
	if rec.ProcessingVersion == models.CurrentVersion && rec.Width > 0 && rec.Height > 0 {
		return stateCurrent
	}
	if rec.BinaryImageData != "" {
		return stateLegacyBinary
	}
	if rec.ImageData != "" {
		return stateLegacyMislabeled
	}
	return stateAbsent
}
