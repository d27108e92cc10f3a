// Package server implements the XR-PALS LPS upload service: the public
// HTTP front (index page and multipart upload endpoint), the optional admin
// listener, and the best-effort mirror, ledger and retention stages wired
// around the point file converter.
package server
