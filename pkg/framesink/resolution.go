package framesink

import (
	"image"
	"sort"
)

// Resolution names accepted by New.
const (
	Resolution480p  = "480p"
	Resolution720p  = "720p"
	Resolution1080p = "1080p"
)

var resolutions = map[string]image.Point{
	Resolution1080p: image.Pt(1920, 1080),
	Resolution720p:  image.Pt(1280, 720),
	Resolution480p:  image.Pt(858, 480),
}

// LookupResolution returns the target size for a resolution name.
func LookupResolution(name string) (image.Point, error) {
	size, ok := resolutions[name]
	if !ok {
		return image.Point{}, &ConfigurationError{Resolution: name}
	}
	return size, nil
}

// Resolutions returns the supported resolution names, sorted.
func Resolutions() []string {
	names := make([]string, 0, len(resolutions))
	for name := range resolutions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
