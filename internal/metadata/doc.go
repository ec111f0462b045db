// Package metadata resolves per-directory override documents into the tag
// set applied to each track. Documents are flat YAML key/value files merged
// root-to-leaf, so a directory always overrides its ancestors; the resolution
// also carries a watermark (the newest document mtime) used for tag freshness
// decisions downstream.
package metadata
