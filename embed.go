package spacetraveling

import "embed"

// EmbeddedAssets contains static assets shipped with the site:
// logo.svg, loadmore.js, style.css
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
