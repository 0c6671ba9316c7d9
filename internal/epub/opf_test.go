package epub

import (
	"errors"
	"testing"
)

func TestFindPackagePath(t *testing.T) {
	open := func(t *testing.T, container string) *Archive {
		t.Helper()
		a, err := OpenArchive(buildZip(t, []zipEntry{
			{"META-INF/container.xml", []byte(container)},
		}))
		if err != nil {
			t.Fatalf("Failed to open archive: %v", err)
		}
		return a
	}

	t.Run("PrefersPackageMediaType", func(t *testing.T) {
		a := open(t, `<?xml version="1.0"?>
<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="alt/renditions.xml" media-type="application/smil+xml"/>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)
		p, err := findPackagePath(a)
		if err != nil {
			t.Fatalf("Failed to find package path: %v", err)
		}
		if p != "OEBPS/content.opf" {
			t.Errorf("expected OEBPS/content.opf, got %q", p)
		}
	})

	t.Run("FallsBackToFirstRootfile", func(t *testing.T) {
		a := open(t, `<?xml version="1.0"?>
<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="content.opf" media-type="application/weird"/>
  </rootfiles>
</container>`)
		p, err := findPackagePath(a)
		if err != nil {
			t.Fatalf("Failed to find package path: %v", err)
		}
		if p != "content.opf" {
			t.Errorf("expected content.opf, got %q", p)
		}
	})

	t.Run("NoRootfile", func(t *testing.T) {
		a := open(t, `<?xml version="1.0"?>
<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles></rootfiles>
</container>`)
		if _, err := findPackagePath(a); !errors.Is(err, ErrMissingPackagePath) {
			t.Errorf("expected ErrMissingPackagePath, got %v", err)
		}
	})

	t.Run("MalformedContainer", func(t *testing.T) {
		a := open(t, `<container><rootfiles>`)
		if _, err := findPackagePath(a); !errors.Is(err, ErrMissingContainer) {
			t.Errorf("expected ErrMissingContainer, got %v", err)
		}
	})
}

func parseTestPackage(t *testing.T, metadata, manifest, spine string) *packageDoc {
	t.Helper()
	a, err := OpenArchive(buildZip(t, []zipEntry{
		{"OEBPS/content.opf", []byte(opfXML(metadata, manifest, spine))},
	}))
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	pkg, err := parsePackage(a, "OEBPS/content.opf")
	if err != nil {
		t.Fatalf("Failed to parse package: %v", err)
	}
	return pkg
}

func TestParsePackageMetadata(t *testing.T) {
	pkg := parseTestPackage(t, `<dc:title></dc:title>
<dc:title>Real Title</dc:title>
<dc:creator>First Author</dc:creator>
<dc:creator>Second Author</dc:creator>
<dc:description>Blurb.</dc:description>`, "", "")

	if pkg.title != "Real Title" {
		t.Errorf("expected first non-empty title, got %q", pkg.title)
	}
	if pkg.author != "First Author" {
		t.Errorf("expected first creator, got %q", pkg.author)
	}
	if pkg.description != "Blurb." {
		t.Errorf("expected description, got %q", pkg.description)
	}
}

func TestParsePackageManifest(t *testing.T) {
	pkg := parseTestPackage(t,
		"",
		`<item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
<item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>`,
		"")

	item, ok := pkg.manifest["ch1"]
	if !ok {
		t.Fatalf("expected manifest item ch1")
	}
	if got := pkg.itemPath(item); got != "OEBPS/text/ch1.xhtml" {
		t.Errorf("expected item path OEBPS/text/ch1.xhtml, got %q", got)
	}
	if !pkg.manifest["nav"].HasProperty("nav") {
		t.Errorf("expected nav property")
	}
	if pkg.manifest["nav"].HasProperty("cover-image") {
		t.Errorf("unexpected cover-image property")
	}
	if len(pkg.order) != 2 || pkg.order[0] != "ch1" {
		t.Errorf("expected manifest document order, got %v", pkg.order)
	}
}

func TestParsePackageSpineLinear(t *testing.T) {
	pkg := parseTestPackage(t,
		"",
		`<item id="a" href="a.xhtml" media-type="application/xhtml+xml"/>
<item id="b" href="b.xhtml" media-type="application/xhtml+xml"/>
<item id="c" href="c.xhtml" media-type="application/xhtml+xml"/>
<item id="d" href="d.xhtml" media-type="application/xhtml+xml"/>`,
		`<itemref idref="a"/>
<itemref idref="b" linear="no"/>
<itemref idref="c" linear="NO"/>
<itemref idref="d" linear="yes"/>`)

	want := []bool{true, false, false, true}
	if len(pkg.spine) != len(want) {
		t.Fatalf("expected %d spine items, got %d", len(want), len(pkg.spine))
	}
	for i, w := range want {
		if pkg.spine[i].Linear != w {
			t.Errorf("spine[%d].Linear = %v, want %v", i, pkg.spine[i].Linear, w)
		}
	}
}

func TestParsePackageCoverID(t *testing.T) {
	t.Run("MetaNameContent", func(t *testing.T) {
		pkg := parseTestPackage(t, `<meta name="cover" content="cover-img"/>`, "", "")
		if pkg.coverID != "cover-img" {
			t.Errorf("expected coverID cover-img, got %q", pkg.coverID)
		}
	})

	t.Run("MetaProperty", func(t *testing.T) {
		pkg := parseTestPackage(t, `<meta property="cover">img-7</meta>`, "", "")
		if pkg.coverID != "img-7" {
			t.Errorf("expected coverID img-7, got %q", pkg.coverID)
		}
	})

	t.Run("Absent", func(t *testing.T) {
		pkg := parseTestPackage(t, `<dc:title>X</dc:title>`, "", "")
		if pkg.coverID != "" {
			t.Errorf("expected empty coverID, got %q", pkg.coverID)
		}
	})
}

func TestParsePackageMissing(t *testing.T) {
	a, err := OpenArchive(buildZip(t, []zipEntry{{"mimetype", []byte("application/epub+zip")}}))
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	if _, err := parsePackage(a, "OEBPS/content.opf"); !errors.Is(err, ErrMissingPackageDocument) {
		t.Errorf("expected ErrMissingPackageDocument, got %v", err)
	}
}
