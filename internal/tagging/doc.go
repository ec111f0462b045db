// Package tagging computes and stamps the final tag set: title from the
// filename stem, track number from the file's position among its sorted
// siblings, disc with a default of 1, the resolved artist/album fields, and
// any passthrough extension tags.
package tagging
