// Command mixdown generates AI music tracks, assembles them into a
// loudness-normalized continuous mix, and renders the mix as a still-image
// video ready to publish.
package main
