package build

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"strings"
	"time"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
}

type sitemapSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// stageSitemap writes sitemap.xml and sitemap.xml.gz. Without site_url there
// are no absolute URLs to list and the stage does nothing.
func stageSitemap(_ context.Context, bs *BuildState) error {
	base := bs.Config.SiteURL
	if base == "" {
		return nil
	}
	base = strings.TrimSuffix(base, "/") + "/"
	today := time.Now().UTC().Format("2006-01-02")

	set := sitemapSet{XMLNS: sitemapNS}
	for _, p := range bs.Pages {
		lastmod := today
		if !p.RevisionDate.IsZero() {
			lastmod = p.RevisionDate.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, sitemapURL{Loc: base + p.File.URL, LastMod: lastmod, ChangeFreq: "daily"})
	}
	data, err := encodeSitemap(set)
	if err != nil {
		return newFatalStageError(StageSitemap, err)
	}
	if err := writeFile(joinSlash(bs.Generator.stageDir, "sitemap.xml"), data); err != nil {
		return newFatalStageError(StageSitemap, err)
	}
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(data); err != nil {
		return newFatalStageError(StageSitemap, err)
	}
	if err := zw.Close(); err != nil {
		return newFatalStageError(StageSitemap, err)
	}
	if err := writeFile(joinSlash(bs.Generator.stageDir, "sitemap.xml.gz"), gz.Bytes()); err != nil {
		return newFatalStageError(StageSitemap, err)
	}
	return nil
}

// encodeSitemap renders a url set as an XML document.
func encodeSitemap(set sitemapSet) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
