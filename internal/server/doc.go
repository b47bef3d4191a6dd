// Package server implements the album collaborator endpoint: random album
// listings drawn from the library index, original photo files, and on-demand
// resized variants cached on disk.
package server
