package epub

import (
	"encoding/xml"
	"fmt"
)

const containerPath = "META-INF/container.xml"

type ocfContainer struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// findPackagePath parses META-INF/container.xml and returns the
// declared package document path.
func findPackagePath(a *Archive) (string, error) {
	raw, ok := a.Lookup(containerPath)
	if !ok {
		return "", ErrMissingContainer
	}

	var c ocfContainer
	if err := xml.Unmarshal(stripBOM(raw), &c); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingContainer, err)
	}

	for _, rf := range c.Rootfiles.Rootfile {
		if rf.FullPath == "" {
			continue
		}
		if rf.MediaType == "application/oebps-package+xml" || rf.MediaType == "" {
			return ResolveHref("", rf.FullPath), nil
		}
	}
	// No media-type match, take the first declared rootfile.
	for _, rf := range c.Rootfiles.Rootfile {
		if rf.FullPath != "" {
			return ResolveHref("", rf.FullPath), nil
		}
	}
	return "", ErrMissingPackagePath
}
