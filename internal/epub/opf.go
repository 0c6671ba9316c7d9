package epub

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"
)

// ManifestItem is one resource declared by the package manifest. Href
// is kept relative to the package document's directory.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

// HasProperty reports whether the space-separated properties attribute
// contains name.
func (m ManifestItem) HasProperty(name string) bool {
	for _, p := range strings.Fields(m.Properties) {
		if p == name {
			return true
		}
	}
	return false
}

// SpineItem is one ordered reference into the manifest. Linear=false
// marks supplementary content excluded from the primary reading order.
type SpineItem struct {
	IDRef  string
	Linear bool
}

// packageDoc is the parsed package document: metadata, manifest and
// spine, plus the manifest's document order for deterministic scans.
type packageDoc struct {
	dir         string
	title       string
	author      string
	description string
	coverID     string
	manifest    map[string]ManifestItem
	byPath      map[string]ManifestItem
	order       []string
	spine       []SpineItem
}

// itemPath resolves a manifest item's href to an archive path.
func (p *packageDoc) itemPath(item ManifestItem) string {
	return ResolveHref(p.dir, stripRefSuffix(item.Href))
}

// metaField captures a Dublin Core element that real-world packages
// author as absent, a single element, or a repeated list. Repeated
// occurrences accumulate; First collapses the shape to one value.
type metaField struct {
	values []string
}

func (f *metaField) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var v struct {
		Text string `xml:",chardata"`
	}
	if err := d.DecodeElement(&v, &start); err != nil {
		return err
	}
	f.values = append(f.values, strings.TrimSpace(v.Text))
	return nil
}

// First returns the first non-empty value, or "".
func (f metaField) First() string {
	for _, v := range f.values {
		if v != "" {
			return v
		}
	}
	return ""
}

type opfMeta struct {
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"`
	Property string `xml:"property,attr"`
	Value    string `xml:",chardata"`
}

type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Title       metaField `xml:"http://purl.org/dc/elements/1.1/ title"`
		Creator     metaField `xml:"http://purl.org/dc/elements/1.1/ creator"`
		Description metaField `xml:"http://purl.org/dc/elements/1.1/ description"`
		Meta        []opfMeta `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// parsePackage decodes the package document at opfPath.
func parsePackage(a *Archive, opfPath string) (*packageDoc, error) {
	raw, ok := a.Lookup(opfPath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingPackageDocument, opfPath)
	}

	var pkg opfPackage
	if err := xml.Unmarshal(stripBOM(raw), &pkg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingPackageDocument, err)
	}

	doc := &packageDoc{
		dir:         packageDir(opfPath),
		title:       pkg.Metadata.Title.First(),
		author:      pkg.Metadata.Creator.First(),
		description: pkg.Metadata.Description.First(),
		manifest:    make(map[string]ManifestItem, len(pkg.Manifest.Items)),
	}

	doc.byPath = make(map[string]ManifestItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		if item.ID == "" {
			continue
		}
		mi := ManifestItem{
			ID:         item.ID,
			Href:       item.Href,
			MediaType:  item.MediaType,
			Properties: item.Properties,
		}
		doc.manifest[item.ID] = mi
		doc.byPath[doc.itemPath(mi)] = mi
		doc.order = append(doc.order, item.ID)
	}

	for _, ref := range pkg.Spine.ItemRefs {
		doc.spine = append(doc.spine, SpineItem{
			IDRef:  ref.IDRef,
			Linear: !strings.EqualFold(strings.TrimSpace(ref.Linear), "no"),
		})
	}

	// EPUB2 declares the cover as <meta name="cover" content=ID>, EPUB3
	// occasionally as <meta property="cover">ID</meta>.
	for _, m := range pkg.Metadata.Meta {
		if strings.EqualFold(m.Name, "cover") && m.Content != "" {
			doc.coverID = m.Content
			break
		}
		if strings.EqualFold(m.Property, "cover") && strings.TrimSpace(m.Value) != "" {
			doc.coverID = strings.TrimSpace(m.Value)
			break
		}
	}

	return doc, nil
}

func packageDir(opfPath string) string {
	dir := path.Dir(opfPath)
	if dir == "." {
		return ""
	}
	return dir
}
