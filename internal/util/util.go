// Package util hashes content and reads the front matter block of post markdown.
package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gomarkdown/markdown"
	"github.com/pkg/errors"
)

var ErrNoFrontMatter = errors.New("markdown does not start with a %%% block")

var (
	openFrontMatter  = []byte("%%%\n")
	closeFrontMatter = []byte("\n%%%")
)

// FrontMatter is the subset of the mmark title block the press reads outside
// of rendering.
type FrontMatter struct {
	Title string    `toml:"title"`
	Date  time.Time `toml:"date"`
}

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

// GetFrontMatter decodes the TOML between the leading pair of %%% lines.
// Only whitespace may precede the opening line.
func GetFrontMatter(md []byte) (*FrontMatter, error) {
	md = markdown.NormalizeNewlines(md)
	md = bytes.TrimLeft(md, "\n \t\r")

	rest, ok := bytes.CutPrefix(md, openFrontMatter)
	if !ok {
		return nil, ErrNoFrontMatter
	}

	var block []byte
	if !bytes.HasPrefix(rest, openFrontMatter[:3]) {
		end := bytes.Index(rest, closeFrontMatter)
		if end == -1 {
			return nil, ErrNoFrontMatter
		}
		block = rest[:end]
	}

	fm := &FrontMatter{}
	if _, err := toml.Decode(string(block), fm); err != nil {
		return nil, errors.Wrap(err, "decoding front matter")
	}
	return fm, nil
}

// PostTitle returns the front matter title, or a dated placeholder when the
// markdown carries none.
func PostTitle(md []byte, created time.Time) string {
	if fm, err := GetFrontMatter(md); err == nil && fm.Title != "" {
		return fm.Title
	}
	return "Untitled - " + created.Format("2006-01-02")
}
