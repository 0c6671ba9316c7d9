package epub

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// allowedTags is the tag set kept by full sanitization: common block,
// inline, table and SVG-primitive elements. style stays so inlined
// stylesheets survive the pass.
var allowedTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "blockquote": true, "br": true,
	"caption": true, "cite": true, "code": true, "dd": true, "del": true,
	"div": true, "dl": true, "dt": true, "em": true, "figcaption": true,
	"figure": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "hr": true, "i": true, "img": true,
	"ins": true, "li": true, "ol": true, "p": true, "pre": true,
	"q": true, "s": true, "small": true, "span": true, "strong": true,
	"style": true, "sub": true, "sup": true, "table": true, "tbody": true,
	"td": true, "tfoot": true, "th": true, "thead": true, "tr": true,
	"u": true, "ul": true,
	// SVG primitives
	"svg": true, "circle": true, "defs": true, "ellipse": true,
	"g": true, "image": true, "line": true, "path": true,
	"polygon": true, "polyline": true, "rect": true, "text": true,
	"title": true, "tspan": true, "use": true,
}

// removeWithContent are elements dropped together with their subtree.
// Everything else not in allowedTags is unwrapped, keeping children.
var removeWithContent = map[string]bool{
	"script": true, "iframe": true, "object": true, "embed": true,
	"applet": true, "form": true, "input": true, "button": true,
	"select": true, "textarea": true, "noscript": true, "video": true,
	"audio": true, "link": true, "meta": true, "base": true, "head": true,
}

var globalAttrs = map[string]bool{
	"class": true, "style": true, "id": true, "title": true, "align": true,
}

var tagAttrs = map[string]map[string]bool{
	"a":     {"href": true, "rel": true},
	"img":   {"src": true, "srcset": true, "alt": true, "width": true, "height": true},
	"ol":    {"start": true, "type": true},
	"table": {"width": true, "border": true, "cellpadding": true, "cellspacing": true, "summary": true},
	"td":    {"colspan": true, "rowspan": true},
	"th":    {"colspan": true, "rowspan": true, "scope": true},
	"svg": {
		"width": true, "height": true, "viewbox": true, "xmlns": true,
		"version": true, "preserveaspectratio": true, "fill": true, "stroke": true,
	},
	"image": {
		"href": true, "xlink:href": true, "width": true, "height": true,
		"x": true, "y": true, "preserveaspectratio": true,
	},
	"path": {
		"d": true, "fill": true, "stroke": true, "stroke-width": true,
		"stroke-linecap": true, "stroke-linejoin": true, "fill-rule": true,
		"clip-rule": true, "transform": true, "opacity": true,
	},
	"circle":   {"cx": true, "cy": true, "r": true, "fill": true, "stroke": true, "stroke-width": true, "opacity": true},
	"ellipse":  {"cx": true, "cy": true, "rx": true, "ry": true, "fill": true, "stroke": true, "stroke-width": true},
	"line":     {"x1": true, "y1": true, "x2": true, "y2": true, "stroke": true, "stroke-width": true},
	"rect":     {"x": true, "y": true, "width": true, "height": true, "rx": true, "ry": true, "fill": true, "stroke": true, "stroke-width": true},
	"polygon":  {"points": true, "fill": true, "stroke": true, "stroke-width": true},
	"polyline": {"points": true, "fill": true, "stroke": true, "stroke-width": true},
	"text":     {"x": true, "y": true, "dx": true, "dy": true, "fill": true, "font-size": true, "font-family": true, "text-anchor": true},
	"tspan":    {"x": true, "y": true, "dx": true, "dy": true, "fill": true},
	"use":      {"href": true, "xlink:href": true, "x": true, "y": true, "width": true, "height": true},
	"g":        {"fill": true, "stroke": true, "transform": true, "opacity": true},
}

// allowedStylePropRe matches the inline style properties kept by full
// sanitization: typography, box model, positioning and basic visuals.
var allowedStylePropRe = regexp.MustCompile(`(?i)^(font(-[a-z]+)?|text-[a-z-]+|line-height|letter-spacing|word-(break|spacing|wrap)|white-space|color|background(-[a-z]+)?|margin(-[a-z]+)?|padding(-[a-z]+)?|border(-[a-z-]+)?|outline(-[a-z]+)?|(min-|max-)?(width|height)|display|float|clear|vertical-align|page-break-[a-z]+|break-(before|after|inside)|overflow(-[xy])?|position|top|left|right|bottom|z-index|opacity|visibility|list-style(-[a-z]+)?|box-(sizing|shadow)|object-(fit|position)|direction|unicode-bidi|hyphens|orphans|widows)$`)

// sanitizeTree applies full allowlist sanitization to the subtree
// rooted at n: disallowed dangerous elements are removed with their
// content, other disallowed elements are unwrapped in place, and
// attributes are filtered per tag.
func sanitizeTree(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
			continue
		}
		if c.Type != html.ElementNode {
			continue
		}
		name := strings.ToLower(c.Data)
		if removeWithContent[name] {
			n.RemoveChild(c)
			continue
		}
		if !allowedTags[name] {
			if first := unwrapNode(n, c); first != nil {
				next = first
			}
			continue
		}
		sanitizeAttrs(c, name)
		sanitizeTree(c)
	}
}

// unwrapNode hoists n's children into parent at n's position and
// removes n. Returns the first hoisted child, nil when n was empty.
func unwrapNode(parent, n *html.Node) *html.Node {
	first := n.FirstChild
	for c := n.FirstChild; c != nil; {
		nextChild := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = nextChild
	}
	parent.RemoveChild(n)
	return first
}

func sanitizeAttrs(n *html.Node, name string) {
	kept := n.Attr[:0]
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if attr.Namespace != "" {
			key = strings.ToLower(attr.Namespace) + ":" + key
		}
		if strings.HasPrefix(key, "on") {
			continue
		}
		if !globalAttrs[key] && !tagAttrs[name][key] {
			continue
		}
		if key == "style" {
			attr.Val = sanitizeStyleValue(attr.Val)
			if attr.Val == "" {
				continue
			}
		}
		if isURIKey(key) && !isAllowedURI(attr.Val) {
			continue
		}
		if key == "srcset" && !srcsetAllowed(attr.Val) {
			continue
		}
		kept = append(kept, attr)
	}
	n.Attr = kept
}

// sanitizeStyleValue filters an inline style value declaration by
// declaration, keeping only allowlisted properties with safe values.
func sanitizeStyleValue(value string) string {
	var kept []string
	for _, decl := range strings.Split(value, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		i := strings.Index(decl, ":")
		if i <= 0 {
			continue
		}
		prop := strings.TrimSpace(decl[:i])
		val := strings.TrimSpace(decl[i+1:])
		if !allowedStylePropRe.MatchString(prop) {
			continue
		}
		lowerVal := strings.ToLower(val)
		if strings.Contains(lowerVal, "expression(") || strings.Contains(lowerVal, "javascript:") {
			continue
		}
		if strings.Contains(lowerVal, "url(") && !styleURLsAllowed(val) {
			continue
		}
		kept = append(kept, prop+": "+val)
	}
	return strings.Join(kept, "; ")
}

func styleURLsAllowed(val string) bool {
	for _, m := range cssURLRe.FindAllStringSubmatch(val, -1) {
		if !isAllowedURI(m[1]) {
			return false
		}
	}
	return true
}

func isURIKey(key string) bool {
	return key == "href" || key == "src" || key == "xlink:href"
}

// isAllowedURI permits relative references, fragments, and the http,
// https, mailto, tel and data schemes. Everything else is rejected.
func isAllowedURI(raw string) bool {
	v := strings.TrimSpace(raw)
	if v == "" {
		return true
	}
	if strings.HasPrefix(v, "#") || strings.HasPrefix(v, "/") ||
		strings.HasPrefix(v, "./") || strings.HasPrefix(v, "../") ||
		strings.HasPrefix(v, "?") {
		return true
	}
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	if u.Scheme == "" {
		return true
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto", "tel", "data":
		return true
	}
	return false
}

func srcsetAllowed(srcset string) bool {
	for _, ref := range srcsetRefs(srcset) {
		if !isAllowedURI(ref) {
			return false
		}
	}
	return true
}

// lightSanitize is the pass applied to visual content after scripts are
// removed: it drops any script element that survived parsing quirks,
// javascript: scheme values, and click/error handlers, leaving the rest
// of the markup alone so inline SVG and styled imagery stay intact.
func lightSanitize(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && strings.ToLower(c.Data) == "script" {
			n.RemoveChild(c)
			continue
		}
		if c.Type == html.ElementNode {
			kept := c.Attr[:0]
			for _, attr := range c.Attr {
				key := strings.ToLower(attr.Key)
				if key == "onclick" || key == "onerror" {
					continue
				}
				if strings.Contains(strings.ToLower(attr.Val), "javascript:") {
					continue
				}
				kept = append(kept, attr)
			}
			c.Attr = kept
		}
		lightSanitize(c)
	}
}
